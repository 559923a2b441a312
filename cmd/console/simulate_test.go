package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

func TestParseEpiFlag(t *testing.T) {
	epi, err := parseEpiFlag("vest:0.8:loose")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if epi.Type != "vest" || epi.Confidence == nil || *epi.Confidence != 0.8 {
		t.Fatalf("unexpected epi: %+v", epi)
	}
	if epi.ProperlyWorn == nil || *epi.ProperlyWorn {
		t.Fatalf("expected loose modifier to clear properly_worn")
	}

	epi, err = parseEpiFlag("gloves::missing")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if epi.Confidence != nil || epi.Detected == nil || *epi.Detected {
		t.Fatalf("unexpected epi: %+v", epi)
	}

	for _, raw := range []string{"", "helmet:high", "helmet:0.9:sideways", "a:b:c:d"} {
		if _, err := parseEpiFlag(raw); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %q, got %v", raw, err)
		}
	}
}

func TestFlagScenarioValidates(t *testing.T) {
	opts := simulateOptions{FaceConfidence: 0.95, FaceQuality: 0.9, Epis: []string{"helmet:0.92"}}
	sc, err := flagScenario(opts)
	if err != nil {
		t.Fatalf("flag scenario: %v", err)
	}
	if len(sc.Epis) != 1 || sc.Face == nil || !*sc.Face.Detected {
		t.Fatalf("unexpected scenario: %+v", sc)
	}

	opts.Epis = nil
	if _, err := flagScenario(opts); !errors.Is(err, domain.ErrNoEpiEvents) {
		t.Fatalf("expected ErrNoEpiEvents without epis, got %v", err)
	}

	opts.Epis = []string{"helmet:1.5"}
	if _, err := flagScenario(opts); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestSelectScenariosFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	doc := `scenarios:
  - name: capacete ok
    epis:
      - {type: helmet}
  - name: sem colete
    epis:
      - {type: vest, detected: false}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	all, err := selectScenarios(simulateOptions{ScenarioPath: path})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected both scenarios, got %d (%v)", len(all), err)
	}

	one, err := selectScenarios(simulateOptions{ScenarioPath: path, Name: "sem colete"})
	if err != nil || len(one) != 1 || one[0].Name != "sem colete" {
		t.Fatalf("expected named scenario, got %+v (%v)", one, err)
	}

	if _, err := selectScenarios(simulateOptions{ScenarioPath: path, Name: "missing"}); err == nil {
		t.Fatalf("expected error for unknown scenario name")
	}
}
