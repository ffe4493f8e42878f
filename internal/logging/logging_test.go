package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithFields(logrus.Fields{"action": "submission", "actor": "alice", "outcome": "created"}).Info("feedback submitted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "submission", entry["action"])
	assert.Equal(t, "alice", entry["actor"])
	assert.Equal(t, "created", entry["outcome"])
	assert.NotEmpty(t, entry["time"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "text")
	require.NoError(t, err)
	logger.WithField("action", "list").Info("hello")
	assert.Contains(t, buf.String(), "action=list")
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)
}
