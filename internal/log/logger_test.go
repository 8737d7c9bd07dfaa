package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentAlert, Output: &buf})

	logger.InfoContext(context.Background(), "Alert dispatched", FieldCategory, "Groceries")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Alert dispatched", rec["msg"])
	assert.Equal(t, ComponentAlert, rec[FieldComponent])
	assert.Equal(t, "Groceries", rec[FieldCategory])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: ParseLevel("warn"), Output: &buf, Component: ComponentApp})

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestFieldsToSliceIsOrdered(t *testing.T) {
	fields := NewFields().
		WithOwner("u1", "2024-07").
		WithAlert("warning", "Groceries", decimal.NewFromInt(8000), decimal.NewFromInt(80)).
		WithError(errors.New("boom"))

	got := fields.ToSlice()
	require.Len(t, got, 2*len(fields))
	for i := 2; i < len(got); i += 2 {
		assert.Less(t, got[i-2].(string), got[i].(string))
	}
	assert.Equal(t, "80.0", fields[FieldPercentage])
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentHTTP}).With(FieldRequestID, "req_1")

	seen := FromContext(WithLogger(context.Background(), logger))
	seen.Info("hello")
	assert.Contains(t, buf.String(), "request_id=req_1")
	assert.Contains(t, buf.String(), "component=http")
}

func TestFromContextDefault(t *testing.T) {
	l := FromContext(context.Background())
	assert.Equal(t, ComponentApp, l.Component())
}
