package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Comcast/ntta/util"
)

func TestWarnings(t *testing.T) {
	ws := NewWarnings()
	if !ws.Enabled(WarnOverlapIdem) {
		t.Fatal("disabled")
	}
	if err := ws.Disable("overlap_idem"); err != nil {
		t.Fatal(err)
	}
	if ws.Enabled(WarnOverlapIdem) || !ws.Enabled(WarnHashCollision) {
		t.Fatal("wrong warnings")
	}
	if err := ws.Disable("tacos"); err == nil {
		t.Fatal("expected an error")
	}
	ws.DisableAll()
	if ws.Enabled(WarnHashCollision) {
		t.Fatal("enabled")
	}

	var nilws *Warnings
	if !nilws.Enabled(WarnParser) {
		t.Fatal("nil warnings should enable everything")
	}

	if len(ListWarnings()) != len(WarningDescriptions) {
		t.Fatal(ListWarnings())
	}
}

func TestConfigWarn(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{
		Logger:   util.NewLogger(util.Verbosity(6), "text", &buf),
		Warnings: NewWarnings(),
	}
	cfg.Warn(WarnParser, "queso")
	if !strings.Contains(buf.String(), "warning=parser_warning") {
		t.Fatal(buf.String())
	}

	buf.Reset()
	cfg.Warnings.Disable(string(WarnParser))
	cfg.Warn(WarnParser, "queso")
	if buf.Len() != 0 {
		t.Fatal(buf.String())
	}

	cfg.Trace("chips")
	if !strings.Contains(buf.String(), "TRACE") {
		t.Fatal(buf.String())
	}

	// A nil config logs nowhere without complaint.
	var none *Config
	none.Warn(WarnParser, "nothing")
	none.Trace("nothing")
}
