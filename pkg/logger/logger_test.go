package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRejectsUnknownOutput(t *testing.T) {
	err := Init(Config{Level: "info", Output: "kafka"})
	require.Error(t, err)
}

func TestInitWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: "file", Path: dir, File: "app.log", MaxSize: 1}))
	assert.Equal(t, logrus.DebugLevel, L().GetLevel())
	require.NoError(t, Init(Config{Level: "info", Output: "stdout"}))
}

func TestWithContextCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: "stdout"}))
	L().SetOutput(&buf)

	ctx := ContextWithFields(context.Background(), logrus.Fields{"request_id": "abc"})
	ctx = ContextWithFields(ctx, logrus.Fields{"user": "ana"})
	WithContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["request_id"])
	assert.Equal(t, "ana", line["user"])
	assert.Equal(t, "hello", line["message"])
}
