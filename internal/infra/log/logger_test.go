package log

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	l, err := New("", "development")
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatal("empty level must default to debug")
	}

	l, err = New("warn", "production")
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zap.InfoLevel) || !l.Core().Enabled(zap.WarnLevel) {
		t.Fatal("warn level not applied")
	}

	if _, err := New("loud", "development"); err == nil {
		t.Fatal("unknown level must fail")
	}
}
