package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled; entry=%s", buf.String())
	}
}

func TestLoggerCarriesActorFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "adspace-api", Output: buf})
	ctx := log.WithActor(context.Background(), 42, "Admin")
	ctx = log.WithFields(ctx, map[string]any{"campaign_id": 7, "amount": "150.00"})
	log.Info(ctx, "payment recorded")

	for _, want := range []string{`"user_id":42`, `"actor_role":"Admin"`, `"service":"adspace-api"`, `"campaign_id":7`, `"amount":"150.00"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in entry=%s", want, buf.String())
		}
	}
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	var nilLogger *Logger
	ctx := nilLogger.WithField(context.Background(), "k", "v")
	nilLogger.Info(ctx, "ignored")
	nilLogger.Warn(ctx, "ignored")
	Nop().Error(ctx, "ignored", errors.New("x"))
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel("WARN"); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestConsoleOutputIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "adspace-api", Output: buf, Console: true})
	log.Info(context.Background(), "booting")

	if bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("{")) {
		t.Fatalf("expected console formatting, got %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("booting")) {
		t.Fatalf("expected message in console output, got %s", buf.String())
	}
}

func TestWithFieldsEmptyKeepsContext(t *testing.T) {
	log := Nop()
	ctx := context.Background()
	if got := log.WithFields(ctx, nil); got != ctx {
		t.Fatal("expected the same context for empty fields")
	}
}
