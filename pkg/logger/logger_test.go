package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", "text").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("nonsense", "text").GetLevel())
}

func TestNew_JSONFormat(t *testing.T) {
	log := New("info", "json")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	WithFields(log, logrus.Fields{"group_id": 7}).Info("group created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "group created", entry["msg"])
	assert.Equal(t, float64(7), entry["group_id"])
}

func TestNew_TextFormat(t *testing.T) {
	log := New("info", "text")
	_, ok := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
