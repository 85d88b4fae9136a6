package unsplash

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLogger(interfaces.LogLevelWarn)
	logger.SetOutput(&out, &errOut)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error(errors.New("boom"))

	if strings.Contains(out.String(), "debug message") || strings.Contains(out.String(), "info message") {
		t.Errorf("messages below warn were written: %q", out.String())
	}
	if !strings.Contains(out.String(), "warn: warn message") {
		t.Errorf("warn message missing: %q", out.String())
	}
	if !strings.HasPrefix(errOut.String(), "[UNSPLASH-") || !strings.Contains(errOut.String(), "(error: boom)") {
		t.Errorf("unexpected error output: %q", errOut.String())
	}

	out.Reset()
	logger.SetLevel(interfaces.LogLevelDebug)
	logger.Debug("now visible")
	if !strings.Contains(out.String(), "debug: now visible") {
		t.Errorf("debug message missing after SetLevel: %q", out.String())
	}
}
