package logger

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestNewConsoleHandler_WritesFormattedRecord(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewConsoleHandler(buf, &ConsoleHandlerOptions{Level: slog.LevelDebug, NoColor: true})

	l := slog.New(handler)
	l.Info("hello", "key", "value")

	if buf.Len() == 0 {
		t.Fatal("expected console handler to write output")
	}
}

func TestCharmHandler_RespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewCharmHandler(buf, &CharmHandlerOptions{Level: slog.LevelWarn, NoColor: true})

	if handler.Enabled(nil, slog.LevelDebug) {
		t.Error("expected debug to be disabled at warn level")
	}
	if !handler.Enabled(nil, slog.LevelError) {
		t.Error("expected error to be enabled at warn level")
	}
}

func TestCharmHandler_WithAttrsAndGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewCharmHandler(buf, nil)

	withAttrs := handler.WithAttrs([]slog.Attr{slog.String("component", "test")})
	withGroup := withAttrs.WithGroup("request")

	l := slog.New(withGroup)
	l.Info("grouped message", "status", 200)

	if buf.Len() == 0 {
		t.Fatal("expected output after WithAttrs/WithGroup chain")
	}
}
