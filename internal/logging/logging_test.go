package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", "json")
	log.WithField("user_id", 7).Info("granted")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "granted", line["msg"])
	assert.EqualValues(t, 7, line["user_id"])
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewWithOutput_BadLevelFallsBackToInfo(t *testing.T) {
	log := NewWithOutput(&bytes.Buffer{}, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, ok := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
