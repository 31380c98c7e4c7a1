package validator

// Severity classifies a finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Status is the overall verdict of a report
type Status string

const (
	StatusValid             Status = "valid"
	StatusValidWithWarnings Status = "valid_with_warnings"
	StatusInvalid           Status = "invalid"
)

const (
	errorPenalty   = 20
	warningPenalty = 5
)

// Finding is one observation about the checked input
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Counts summarises what was checked
type Counts struct {
	Documents   int `json:"documents"`
	Invoices    int `json:"invoices"`
	CreditNotes int `json:"credit_notes"`
	Drafts      int `json:"drafts"`
	Partitions  int `json:"partitions"`
}

// Report is the result of a validation run. Findings are data, never errors:
// a non-conformant document still yields a complete report.
type Report struct {
	Status     Status    `json:"status"`
	Score      int       `json:"score"`
	Errors     []Finding `json:"errors"`
	Warnings   []Finding `json:"warnings"`
	Infos      []Finding `json:"infos"`
	Counts     Counts    `json:"counts"`
	Gaps       []string  `json:"gaps,omitempty"`
	Duplicates []string  `json:"duplicates,omitempty"`
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{
		Errors:   []Finding{},
		Warnings: []Finding{},
		Infos:    []Finding{},
	}
}

// AddError records an error finding
func (r *Report) AddError(code, message string) {
	r.Errors = append(r.Errors, Finding{Severity: SeverityError, Code: code, Message: message})
}

// AddWarning records a warning finding
func (r *Report) AddWarning(code, message string) {
	r.Warnings = append(r.Warnings, Finding{Severity: SeverityWarning, Code: code, Message: message})
}

// AddInfo records an informational finding
func (r *Report) AddInfo(code, message string) {
	r.Infos = append(r.Infos, Finding{Severity: SeverityInfo, Code: code, Message: message})
}

// Merge appends the findings, gaps and duplicates of other
func (r *Report) Merge(other *Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Infos = append(r.Infos, other.Infos...)
	r.Gaps = append(r.Gaps, other.Gaps...)
	r.Duplicates = append(r.Duplicates, other.Duplicates...)
}

// Finish computes score and status from the findings
func (r *Report) Finish() *Report {
	score := 100 - errorPenalty*len(r.Errors) - warningPenalty*len(r.Warnings)
	if score < 0 {
		score = 0
	}
	r.Score = score

	switch {
	case len(r.Errors) > 0:
		r.Status = StatusInvalid
	case len(r.Warnings) > 0:
		r.Status = StatusValidWithWarnings
	default:
		r.Status = StatusValid
	}
	return r
}

// Valid reports whether the report has no errors
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// HasCode reports whether any finding carries code
func (r *Report) HasCode(code string) bool {
	for _, list := range [][]Finding{r.Errors, r.Warnings, r.Infos} {
		for _, f := range list {
			if f.Code == code {
				return true
			}
		}
	}
	return false
}
