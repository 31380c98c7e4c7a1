// Package config loads the engine settings from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the complete engine configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Numbering NumberingConfig
	Tax       TaxConfig
	Terms     TermsConfig
	Export    ExportConfig
	Logging   LoggingConfig
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// DatabaseConfig holds the Postgres connection settings. An empty Host
// selects the in-memory store.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	LockTimeout  time.Duration
	Serializable bool
}

// RedisConfig holds the export cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NumberingConfig holds the document number layout
type NumberingConfig struct {
	InvoicePrefix    string
	CreditNotePrefix string
	Width            int
}

// TaxConfig holds the seller jurisdiction
type TaxConfig struct {
	StandardRate decimal.Decimal
	HomeCountry  string
	Region       []string
}

// TermsConfig holds the payment defaults
type TermsConfig struct {
	PaymentDays int
	Currency    string
}

// ExportConfig holds the identifiers written into exported files
type ExportConfig struct {
	SoftwareCompany     string
	SoftwareID          string
	SoftwareVersion     string
	PeppolCustomization string
	PeppolProfile       string
	FacturXGuideline    string
	SchemaAudit         string
	SchemaHybrid        string
	SchemaNetwork       string
}

// LoggingConfig holds the logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// euMembers is the default VAT region
var euMembers = []string{
	"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI", "FR", "GR", "HR", "HU",
	"IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
}

// Load reads the configuration from environment variables and validates it
func Load() (*Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load()

	rate, err := decimal.NewFromString(getEnv("FISCAL_STANDARD_RATE", "17"))
	if err != nil {
		return nil, fmt.Errorf("invalid FISCAL_STANDARD_RATE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:      getEnv("FISCAL_ADDRESS", ":8080"),
			ReadTimeout:  getEnvAsDuration("FISCAL_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("FISCAL_WRITE_TIMEOUT", time.Minute),
			Debug:        getEnvAsBool("FISCAL_DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:         getEnv("PGHOST", ""),
			Port:         getEnv("PGPORT", "5432"),
			User:         getEnv("PGUSER", "postgres"),
			Password:     getEnv("PGPASSWORD", ""),
			Name:         getEnv("PGDATABASE", "fiscal"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			LockTimeout:  getEnvAsDuration("FISCAL_LOCK_TIMEOUT", 5*time.Second),
			Serializable: getEnvAsBool("FISCAL_SERIALIZABLE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("FISCAL_EXPORT_TTL", 24*time.Hour),
		},
		Numbering: NumberingConfig{
			InvoicePrefix:    getEnv("FISCAL_INVOICE_PREFIX", "F"),
			CreditNotePrefix: getEnv("FISCAL_CREDIT_NOTE_PREFIX", "AV"),
			Width:            getEnvAsInt("FISCAL_NUMBER_WIDTH", 3),
		},
		Tax: TaxConfig{
			StandardRate: rate,
			HomeCountry:  strings.ToUpper(getEnv("FISCAL_HOME_COUNTRY", "LU")),
			Region:       getEnvAsList("FISCAL_VAT_REGION", euMembers),
		},
		Terms: TermsConfig{
			PaymentDays: getEnvAsInt("FISCAL_PAYMENT_DAYS", 30),
			Currency:    strings.ToUpper(getEnv("FISCAL_CURRENCY", "EUR")),
		},
		Export: ExportConfig{
			SoftwareCompany:     getEnv("FISCAL_SOFTWARE_COMPANY", "Rezonia"),
			SoftwareID:          getEnv("FISCAL_SOFTWARE_ID", "fiscal-engine"),
			SoftwareVersion:     getEnv("FISCAL_SOFTWARE_VERSION", "1.0.0"),
			PeppolCustomization: getEnv("FISCAL_PEPPOL_CUSTOMIZATION", ""),
			PeppolProfile:       getEnv("FISCAL_PEPPOL_PROFILE", ""),
			FacturXGuideline:    getEnv("FISCAL_FACTURX_GUIDELINE", ""),
			SchemaAudit:         getEnv("FISCAL_XSD_FAIA", ""),
			SchemaHybrid:        getEnv("FISCAL_XSD_FACTURX", ""),
			SchemaNetwork:       getEnv("FISCAL_XSD_PEPPOL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a misconfiguration would silently corrupt
func (c *Config) Validate() error {
	n := c.Numbering
	if n.Width < 1 || n.Width > 9 {
		return fmt.Errorf("numbering width must be between 1 and 9, got %d", n.Width)
	}
	if n.InvoicePrefix == "" || n.CreditNotePrefix == "" {
		return fmt.Errorf("numbering prefixes must not be empty")
	}
	if n.InvoicePrefix == n.CreditNotePrefix {
		return fmt.Errorf("invoice and credit note prefixes must differ, both are %q", n.InvoicePrefix)
	}
	if strings.ContainsAny(n.InvoicePrefix+n.CreditNotePrefix, " \t") {
		return fmt.Errorf("numbering prefixes must not contain whitespace")
	}

	if c.Tax.StandardRate.IsNegative() || c.Tax.StandardRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("standard VAT rate must be between 0 and 100, got %s", c.Tax.StandardRate)
	}
	if len(c.Tax.HomeCountry) != 2 {
		return fmt.Errorf("home country must be an ISO 3166 alpha-2 code, got %q", c.Tax.HomeCountry)
	}
	if c.Terms.PaymentDays < 0 {
		return fmt.Errorf("payment days must not be negative, got %d", c.Terms.PaymentDays)
	}
	if len(c.Terms.Currency) != 3 {
		return fmt.Errorf("currency must be an ISO 4217 code, got %q", c.Terms.Currency)
	}
	if c.Database.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive, got %s", c.Database.LockTimeout)
	}
	return nil
}

// UsePostgres reports whether a database host is configured
func (c *Config) UsePostgres() bool {
	return c.Database.Host != ""
}

// GetDSN returns the lib/pq connection string
func (c *Config) GetDSN() string {
	return "host=" + c.Database.Host +
		" port=" + c.Database.Port +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" sslmode=" + c.Database.SSLMode
}

// getEnv returns the variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable into upper-cased items
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToUpper(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}
