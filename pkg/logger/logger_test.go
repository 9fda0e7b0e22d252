package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreGlobal puts the global logger back the way newLogger left it.
func restoreGlobal(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		L.Logger.SetLevel(logrus.WarnLevel)
		SetLogFormat("fmt")
		SetLogOutput(os.Stderr)
	})
}

func TestNewLogger(t *testing.T) {
	logger := newLogger()

	require.NotNil(t, logger)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.Equal(t, os.Stderr, logger.Out)

	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
}

func TestGetLogger_WithContextLogger(t *testing.T) {
	custom := logrus.NewEntry(logrus.New()).WithField("invocation_id", "abc")
	ctx := WithLogger(context.Background(), custom)

	retrieved := G(ctx)
	assert.Equal(t, "abc", retrieved.Data["invocation_id"])
}

func TestGetLogger_FallsBackToGlobal(t *testing.T) {
	retrieved := G(context.Background())
	assert.Equal(t, L.Logger, retrieved.Logger)
}

func TestWithFields(t *testing.T) {
	ctx := WithLogger(context.Background(), logrus.NewEntry(logrus.New()).WithField("command", "get_result"))
	ctx = WithFields(ctx, logrus.Fields{"skill_id": "7"})

	entry := G(ctx)
	assert.Equal(t, "get_result", entry.Data["command"])
	assert.Equal(t, "7", entry.Data["skill_id"])
}

func TestConfigure_JSON(t *testing.T) {
	restoreGlobal(t)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	require.NoError(t, Configure("debug", "json"))

	G(context.Background()).WithField("method", "get_trained_skills").Debug("calling skill api")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["logLevel"])
	assert.Equal(t, "calling skill api", entry["message"])
	assert.Equal(t, "get_trained_skills", entry["method"])

	ts, ok := entry["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestConfigure_InvalidLevel(t *testing.T) {
	restoreGlobal(t)

	err := Configure("chatty", "fmt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log level "chatty"`)
	assert.Equal(t, logrus.WarnLevel, L.Logger.GetLevel())
}

func TestDefaultLevelHidesInfo(t *testing.T) {
	restoreGlobal(t)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	G(context.Background()).Info("not shown")
	G(context.Background()).Warn("shown")

	assert.NotContains(t, buf.String(), "not shown")
	assert.Contains(t, buf.String(), "shown")
}
