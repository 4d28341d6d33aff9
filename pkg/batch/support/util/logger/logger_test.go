package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel_FiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr); SetLogLevel("INFO") })

	SetLogLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "WARN")
}

func TestSetLogLevel_UnknownDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr); SetLogLevel("INFO") })

	SetLogLevel("verbose")
	assert.True(t, Enabled(LevelInfo))
	assert.False(t, Enabled(LevelDebug))
	assert.Contains(t, buf.String(), "Unknown log level 'verbose'")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"Warn":  LevelWarn,
		"error": LevelError,
		"FATAL": LevelFatal,
	}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseLevel("nope")
	assert.False(t, ok)
}

func TestConfigure_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querymetrics.log")
	Configure(Options{Level: "DEBUG", Format: "json", FilePath: path, MaxSizeMB: 1})
	t.Cleanup(func() { SetOutput(os.Stderr); SetLogLevel("INFO") })

	Debugf("marker advanced to %s", "abc")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"marker advanced to abc"`)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
}
