package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/usecase"
)

// File is a YAML document holding named composer states.
type File struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

type Scenario struct {
	Name         string   `yaml:"name"`
	PersonID     string   `yaml:"person_id"`
	Location     string   `yaml:"location"`
	Face         *Face    `yaml:"face"`
	Epis         []Epi    `yaml:"epis"`
	RequiredEpis []string `yaml:"required_epis"`
}

type Face struct {
	Detected     *bool    `yaml:"detected"`
	Confidence   *float64 `yaml:"confidence"`
	QualityScore *float64 `yaml:"quality_score"`
}

type Epi struct {
	Type         string   `yaml:"type"`
	Detected     *bool    `yaml:"detected"`
	Confidence   *float64 `yaml:"confidence"`
	ProperlyWorn *bool    `yaml:"properly_worn"`
}

func LoadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open scenario file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a scenario document. Unknown keys are errors.
func Parse(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, domain.WrapError(domain.ErrInvalidInput, "parse scenarios", errors.New("empty document"))
		}
		return File{}, domain.WrapError(domain.ErrInvalidInput, "parse scenarios", err)
	}
	if err := file.Validate(); err != nil {
		return File{}, err
	}
	return file, nil
}

func (f File) Validate() error {
	if len(f.Scenarios) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate scenarios", errors.New("no scenarios defined"))
	}
	var problems []error
	seen := make(map[string]struct{}, len(f.Scenarios))
	for i, s := range f.Scenarios {
		label := s.Name
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("#%d", i+1)
		} else if _, dup := seen[s.Name]; dup {
			problems = append(problems, fmt.Errorf("scenario %q: duplicate name", s.Name))
		}
		seen[s.Name] = struct{}{}
		for _, err := range s.problems() {
			problems = append(problems, fmt.Errorf("scenario %s: %w", label, err))
		}
	}
	if len(problems) > 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate scenarios", errors.Join(problems...))
	}
	return nil
}

// Find returns the scenario called name.
func (f File) Find(name string) (Scenario, bool) {
	for _, s := range f.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

func (s Scenario) problems() []error {
	var out []error
	if len(s.Epis) == 0 {
		out = append(out, domain.ErrNoEpiEvents)
	}
	if s.Face != nil {
		out = appendRange(out, "face.confidence", s.Face.Confidence)
		out = appendRange(out, "face.quality_score", s.Face.QualityScore)
	}
	for i, e := range s.Epis {
		if _, err := domain.ParseEpiType(e.Type); err != nil {
			out = append(out, fmt.Errorf("epis[%d]: unknown type %q", i, e.Type))
		}
		out = appendRange(out, fmt.Sprintf("epis[%d].confidence", i), e.Confidence)
	}
	for _, raw := range s.RequiredEpis {
		if _, err := domain.ParseEpiType(raw); err != nil {
			out = append(out, fmt.Errorf("required_epis: unknown type %q", raw))
		}
	}
	return out
}

func appendRange(out []error, field string, v *float64) []error {
	if v != nil && (*v < 0 || *v > 1) {
		return append(out, fmt.Errorf("%s: %v outside [0,1]", field, *v))
	}
	return out
}

// State converts the scenario into a composer form. Fields the scenario
// leaves out take the form defaults in base.
func (s Scenario) State(base usecase.ComposerState) usecase.ComposerState {
	state := base
	state.PersonID = s.PersonID
	if s.Location != "" {
		state.Location = s.Location
	}
	if s.Face != nil {
		state.FaceDetected = boolOr(s.Face.Detected, base.FaceDetected)
		state.FaceConfidence = floatOr(s.Face.Confidence, base.FaceConfidence)
		state.FaceQuality = floatOr(s.Face.QualityScore, base.FaceQuality)
	}

	state.Epis = make([]usecase.EpiDraft, 0, len(s.Epis))
	for _, e := range s.Epis {
		t, _ := domain.ParseEpiType(e.Type)
		state.Epis = append(state.Epis, usecase.EpiDraft{
			Type:         t,
			Detected:     boolOr(e.Detected, true),
			Confidence:   floatOr(e.Confidence, 0.9),
			ProperlyWorn: boolOr(e.ProperlyWorn, true),
		})
	}

	if len(s.RequiredEpis) > 0 {
		state.RequiredEpis = make([]domain.EpiType, 0, len(s.RequiredEpis))
		for _, raw := range s.RequiredEpis {
			t, _ := domain.ParseEpiType(raw)
			state.RequiredEpis = append(state.RequiredEpis, t)
		}
	}
	return state
}

// Apply replaces the composer form with the scenario.
func (s Scenario) Apply(c *usecase.Composer) {
	c.Reset()
	c.Replace(s.State(c.Snapshot()))
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
