package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Format: "json", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.With(String("component", "test")).Info("pipeline done",
		Int("horizon", 2190),
		Float64("close", 42.5),
		Error(errors.New("boom")),
	)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	for _, want := range []string{`"message":"pipeline done"`, `"horizon":2190`, `"component":"test"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}

func TestFieldKeyValues(t *testing.T) {
	k, v := Strings("assets", []string{"Bitcoin", "TeraWulf"}).GetKeyValue()
	if k != "assets" || v != "Bitcoin, TeraWulf" {
		t.Fatalf("unexpected %s=%v", k, v)
	}
	k, v = ErrorField{Key: "error"}.GetKeyValue()
	if k != "error" || v != nil {
		t.Fatalf("nil error should map to nil, got %v", v)
	}
}
