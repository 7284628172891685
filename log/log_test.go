package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetProd(true)
	defer SetProd(false)

	logger := New("kate")
	logger = logger.Output(&buf)
	logger.Info().Msg("grid committed")

	var fields map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("unmarshal log line: %v, line=%s", err, buf.String())
	}
	if fields["component"] != "kate" {
		t.Errorf("component = %v, want %q", fields["component"], "kate")
	}
	if fields["message"] != "grid committed" {
		t.Errorf("message = %v, want %q", fields["message"], "grid committed")
	}
}

func TestSetLevelFiltersBelowThreshold(t *testing.T) {
	SetLevel("warn")
	defer SetLevel("info")

	var buf bytes.Buffer
	SetProd(true)
	defer SetProd(false)

	logger := New("p2p").Output(&buf)
	logger.Info().Msg("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("expected no output below threshold, got %q", buf.String())
	}

	logger.Warn().Msg("should appear")
	if buf.Len() == 0 {
		t.Error("expected output at or above threshold")
	}
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	SetLevel("nonsense")
	defer SetLevel("info")

	if level != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", level)
	}
}

func TestSetProdSwitchesOutput(t *testing.T) {
	SetProd(false)
	defer SetProd(false)
	if console != true {
		t.Error("SetProd(false) should select console output")
	}

	SetProd(true)
	if console != false {
		t.Error("SetProd(true) should select JSON output")
	}
}

func TestNewDistinctComponentsIndependent(t *testing.T) {
	SetProd(true)
	defer SetProd(false)

	var bufA, bufB bytes.Buffer
	a := New("blob").Output(&bufA)
	b := New("rpc").Output(&bufB)

	a.Info().Msg("blob event")
	b.Info().Msg("rpc event")

	if !strings.Contains(bufA.String(), `"component":"blob"`) {
		t.Errorf("buf a missing blob component: %s", bufA.String())
	}
	if !strings.Contains(bufB.String(), `"component":"rpc"`) {
		t.Errorf("buf b missing rpc component: %s", bufB.String())
	}
}
