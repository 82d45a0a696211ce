package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	log := configure(logrus.New(), &buf, "debug", "JSON")

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.WithField("item", "abc").Debug("item created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "item created", entry["msg"])
	assert.Equal(t, "abc", entry["item"])
	assert.Equal(t, "debug", entry["level"])
}

func TestConfigureUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := configure(logrus.New(), &buf, "chatty", "text")

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
