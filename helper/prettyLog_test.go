package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
	})

	assert.NotNil(t, handler, "Expected NewPrettyHandler to return a non-nil handler")
	assert.NotNil(t, handler.Handler, "Expected handler to wrap an inner slog handler")
	assert.NotNil(t, handler.l, "Expected handler to carry an output logger")
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	levels := []struct {
		level slog.Level
		label string
	}{
		{slog.LevelDebug, "DEBUG:"},
		{slog.LevelInfo, "INFO:"},
		{slog.LevelWarn, "WARN:"},
		{slog.LevelError, "ERROR:"},
	}
	for _, l := range levels {
		t.Run("Handle "+l.label+" record", func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewPrettyHandler(&buf, PrettyHandlerOptions{
				SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
			})

			record := slog.NewRecord(time.Now(), l.level, "cache miss", 0)
			record.AddAttrs(slog.String("term", "metformin"))

			err := handler.Handle(ctx, record)

			require.NoError(t, err, "Expected Handle to not return an error")
			output := buf.String()
			assert.Contains(t, output, l.label, "Expected output to contain the level label")
			assert.Contains(t, output, "cache miss", "Expected output to contain the message")
			assert.Contains(t, output, "term", "Expected output to contain the attribute key")
			assert.Contains(t, output, "metformin", "Expected output to contain the attribute value")
		})
	}

	t.Run("Record without attributes renders empty JSON object", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "pipeline ready", 0)

		err := handler.Handle(ctx, record)

		require.NoError(t, err, "Expected Handle to not return an error")
		assert.Contains(t, buf.String(), "{}", "Expected empty JSON object when no attributes are set")
	})

	t.Run("Attributes render as indented JSON", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "lookup finished", 0)
		record.AddAttrs(
			slog.String("term", "diabetes"),
			slog.Int("attempts", 2),
			slog.Bool("cached", true),
		)

		err := handler.Handle(ctx, record)

		require.NoError(t, err, "Expected Handle to not return an error")
		output := buf.String()
		assert.Contains(t, output, "\"attempts\": 2", "Expected attributes to be rendered as indented JSON")
		assert.Contains(t, output, "\"cached\": true", "Expected bool attribute in JSON output")
	})

	t.Run("Timestamp uses bracketed millisecond format", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "time check", 0)

		err := handler.Handle(ctx, record)

		require.NoError(t, err, "Expected Handle to not return an error")
		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, buf.String(),
			"Expected output to contain a [HH:MM:SS.mmm] timestamp")
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Logger writes through the pretty handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelInfo)

		logger.Info("extractor started", "knowledgeBase", true)

		output := buf.String()
		assert.Contains(t, output, "INFO:", "Expected logged line to contain the level label")
		assert.Contains(t, output, "extractor started", "Expected logged line to contain the message")
		assert.Contains(t, output, "knowledgeBase", "Expected logged line to contain the attribute key")
	})

	t.Run("Records below the configured level are dropped", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelWarn)

		logger.Info("should be suppressed")
		logger.Warn("should be written")

		output := buf.String()
		assert.NotContains(t, output, "should be suppressed", "Expected info record below warn level to be dropped")
		assert.Contains(t, output, "should be written", "Expected warn record to be written")
	})
}
