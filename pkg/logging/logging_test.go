package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildcraft/guildgen/pkg/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)

	logger.Debug("cache hit", "key", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cache hit", line["msg"])
	assert.Equal(t, "abc", line["key"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, config.LogConfig{Level: "warn"})
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestBadSettings(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewWithWriter(&bytes.Buffer{}, config.LogConfig{Format: "xml"})
	assert.Error(t, err)
}
