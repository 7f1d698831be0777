package common

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"strings"
	"testing"
)

func TestErrorCodes(t *testing.T) {
	base := NewError(RetCChecksumMismatch, "copy A")
	wrapped := fmt.Errorf("loading: %w", base)

	if !IsCode(wrapped, RetCChecksumMismatch) {
		t.Errorf("expected wrapped error to carry code %s", RetCChecksumMismatch)
	}
	if IsCode(wrapped, RetCTruncated) {
		t.Errorf("wrapped error must not match %s", RetCTruncated)
	}
	if !errors.Is(wrapped, NewError(RetCChecksumMismatch, "")) {
		t.Errorf("errors.Is should match errors with the same code")
	}
	if CodeOf(nil) != RetCSuccess {
		t.Errorf("CodeOf(nil) = %s, want Success", CodeOf(nil))
	}
	if CodeOf(errors.New("plain")) != RetCInternalError {
		t.Errorf("plain errors should map to InternalError")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := WrapError(RetCBackendIoFailure, cause, "save copy B")

	if !errors.Is(err, cause) {
		t.Errorf("expected the cause to be unwrappable")
	}
	if !strings.Contains(err.Error(), "BackendIoFailure") || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *EnvConfig)
		wantErr bool
	}{
		{name: "default", mutate: func(c *EnvConfig) {}},
		{name: "zero size", mutate: func(c *EnvConfig) { c.Size = 0 }, wantErr: true},
		{name: "no locations", mutate: func(c *EnvConfig) { c.Locations = nil }, wantErr: true},
		{name: "duplicate location", mutate: func(c *EnvConfig) { c.Locations = []string{"mem", "mem"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := DefaultEnvConfig()
			tt.mutate(&conf)
			if err := conf.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	conf := DefaultEnvConfig()
	conf.Locations = []string{LocationFlash, LocationBolt}
	s := conf.String()

	for _, want := range []string{"ENVIRONMENT", "FLASH", "BOLT", "flash.img"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in config dump:\n%s", want, s)
		}
	}
	if strings.Contains(s, "BLOCK DEVICE") {
		t.Errorf("block section must only be printed when the location is configured")
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error"} {
		if _, err := ParseLogLevel(lvl); err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", lvl, err)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Errorf("expected an error for an unknown level")
	}
}

func TestLocationLogger(t *testing.T) {
	var buf bytes.Buffer
	base := newEnvLogger("redund", &buf, 0)

	l := WithLocation(base, "flash")
	l.Warningf("copy %s is stale", "A")
	WithLocation(l, "flash", "B").Infof("checksum mismatch")
	l.Debugf("hidden at level info")

	want := "WARN  | redund  | flash: copy A is stale\n" +
		"INFO  | redund  | flash/B: checksum mismatch\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}

	base.SetLevel(logger.ERROR)
	buf.Reset()
	l.Warningf("suppressed")
	if buf.Len() != 0 {
		t.Errorf("warning written at level error: %q", buf.String())
	}
}

func TestPanicfAlwaysPanics(t *testing.T) {
	var buf bytes.Buffer
	base := newEnvLogger("env", &buf, 0)
	base.SetLevel(logger.ERROR)

	defer func() {
		if r := recover(); r != "env: mem: broken" {
			t.Errorf("unexpected panic value %v", r)
		}
		if !strings.Contains(buf.String(), "PANIC | env     | mem: broken") {
			t.Errorf("panic not logged: %q", buf.String())
		}
	}()
	WithLocation(base, "mem").Panicf("broken")
}
