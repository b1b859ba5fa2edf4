package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithOutput("debug", "json", &buf)

	log.WithField("appointment_id", "abc").Debug("monitor ran")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "monitor ran", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "abc", entry["appointment_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	log := newWithOutput("chatty", "text", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.IsLevelEnabled(logrus.ErrorLevel))
}
