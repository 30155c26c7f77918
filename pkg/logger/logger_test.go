package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "brewery-service", "warn")

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.WithComponent("ledger").WithEntity("lot", "lot-1").WithError(errors.New("boom")).Warn().Msg("negative stock")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "brewery-service", entry["service"])
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "lot", entry["entity"])
	assert.Equal(t, "lot-1", entry["entity_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "warn", entry["level"])
}

func TestLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "chatty")

	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.WithRequestID("req-1").Info().Msg("shown")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}
