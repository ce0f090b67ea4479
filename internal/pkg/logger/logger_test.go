package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/pkg/logger"
)

func TestLogger_WritesStructuredEntries(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("debug", &buf)

	log.Info("tarefa criada", map[string]interface{}{"task_id": "t-1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "tarefa criada", entry["message"])
	assert.Equal(t, "t-1", entry["task_id"])
	assert.Equal(t, "sitetrack", entry["service"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("error", &buf)

	log.Debug("ignorado", nil)
	log.Warn("ignorado", nil)
	assert.Zero(t, buf.Len())

	log.Error("falhou", errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")
}
