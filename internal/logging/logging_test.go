package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-engine/internal/logging"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup(logging.Config{Level: "debug", Format: "json", Output: &buf})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logging.WithComponent(logger, "lifecycle").WithField("number", "F-2026-001").Info("document finalized")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lifecycle", entry["component"])
	assert.Equal(t, "F-2026-001", entry["number"])
	assert.Equal(t, "document finalized", entry["msg"])
}

func TestSetup_TextAndFallbackLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup(logging.Config{Level: "loud", Output: &buf})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.Debug("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestDiscard(t *testing.T) {
	logger := logging.Discard()
	assert.Equal(t, logrus.PanicLevel, logger.GetLevel())
	logger.Error("nothing happens")
}
