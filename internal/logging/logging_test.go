package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/repolens/config"
)

func TestConfigureLevelAndFormat(t *testing.T) {
	l := logrus.New()
	closeFn := Configure(l, config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, closeFn())

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
	assert.Equal(t, os.Stdout, l.Out)
}

func TestConfigureInvalidLevelFallsBack(t *testing.T) {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	Configure(l, config.LoggingConfig{Level: "loud"})

	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
	assert.Equal(t, os.Stderr, l.Out)
}

func TestConfigureFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repolens.log")
	l := logrus.New()
	closeFn := Configure(l, config.LoggingConfig{Level: "info", Format: "text", Output: path})

	l.Info("hello")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestContextLogger(t *testing.T) {
	fallback, _ := test.NewNullLogger()
	l, hook := test.NewNullLogger()

	assert.Equal(t, logrus.FieldLogger(fallback), FromContext(context.Background(), fallback))

	ctx := WithLogger(context.Background(), l.WithField("run_id", "abc"))
	FromContext(ctx, fallback).Info("tagged")

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "abc", hook.LastEntry().Data["run_id"])
}
