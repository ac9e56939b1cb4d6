package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsSilent(t *testing.T) {
	l := New()
	require.NotNil(t, l.Log)
	l.Log.Info("dropped")
}

func TestInit_Levels(t *testing.T) {
	for _, level := range []string{"debug", "Info", "WARN", "error"} {
		l := New()
		assert.NoError(t, l.Init(level), level)
	}

	l := New()
	assert.ErrorContains(t, l.Init("loud"), "parse log level")
}

func TestInitWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	require.NoError(t, l.InitWriter("warn", &buf))

	l.Log.Info("quiet")
	l.Log.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
