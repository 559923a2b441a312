package usecase

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

const DefaultLocation = "Entrada Principal"

type EpiField string

const (
	EpiFieldType         EpiField = "type"
	EpiFieldDetected     EpiField = "detected"
	EpiFieldConfidence   EpiField = "confidence"
	EpiFieldProperlyWorn EpiField = "properly_worn"
)

// EpiDraft is one editable PPE row of the simulator form.
type EpiDraft struct {
	Type         domain.EpiType `json:"type"`
	Detected     bool           `json:"detected"`
	Confidence   float64        `json:"confidence"`
	ProperlyWorn bool           `json:"properly_worn"`
}

// ComposerState is a copy of the form, safe to hand to renderers.
type ComposerState struct {
	FaceDetected   bool             `json:"face_detected"`
	FaceConfidence float64          `json:"face_confidence"`
	FaceQuality    float64          `json:"face_quality"`
	PersonID       string           `json:"person_id"`
	Location       string           `json:"location"`
	Epis           []EpiDraft       `json:"epis"`
	RequiredEpis   []domain.EpiType `json:"required_epis"`
}

type ComposerOptions struct {
	Location     string
	RequiredEpis []domain.EpiType
}

// Composer holds the pending submission. Every mutation notifies listeners.
type Composer struct {
	opts ComposerOptions

	mu        sync.Mutex
	state     ComposerState
	listeners []func()
}

func NewComposer(opts ComposerOptions) *Composer {
	if strings.TrimSpace(opts.Location) == "" {
		opts.Location = DefaultLocation
	}
	if len(opts.RequiredEpis) == 0 {
		opts.RequiredEpis = []domain.EpiType{domain.EpiHelmet}
	}
	c := &Composer{opts: opts}
	c.state = c.defaults()
	return c
}

func (c *Composer) defaults() ComposerState {
	required := make([]domain.EpiType, len(c.opts.RequiredEpis))
	copy(required, c.opts.RequiredEpis)
	return ComposerState{
		FaceDetected:   true,
		FaceConfidence: 0.95,
		FaceQuality:    0.90,
		Location:       c.opts.Location,
		Epis: []EpiDraft{
			{Type: domain.EpiHelmet, Detected: true, Confidence: 0.92, ProperlyWorn: true},
		},
		RequiredEpis: required,
	}
}

// OnChange registers a listener called after each mutation, outside the lock.
func (c *Composer) OnChange(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Composer) mutate(fn func(s *ComposerState) error) error {
	c.mu.Lock()
	if err := fn(&c.state); err != nil {
		c.mu.Unlock()
		return err
	}
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	for _, listener := range listeners {
		listener()
	}
	return nil
}

func (c *Composer) SetFaceDetected(detected bool) {
	_ = c.mutate(func(s *ComposerState) error {
		s.FaceDetected = detected
		return nil
	})
}

func (c *Composer) SetFaceConfidence(v float64) {
	_ = c.mutate(func(s *ComposerState) error {
		s.FaceConfidence = clampUnit(v)
		return nil
	})
}

func (c *Composer) SetFaceQuality(v float64) {
	_ = c.mutate(func(s *ComposerState) error {
		s.FaceQuality = clampUnit(v)
		return nil
	})
}

func (c *Composer) SetPersonID(personID string) {
	_ = c.mutate(func(s *ComposerState) error {
		s.PersonID = personID
		return nil
	})
}

func (c *Composer) SetLocation(location string) {
	_ = c.mutate(func(s *ComposerState) error {
		s.Location = location
		return nil
	})
}

func (c *Composer) SetRequiredEpis(required []domain.EpiType) error {
	for _, t := range required {
		if !t.Valid() {
			return domain.WrapError(domain.ErrInvalidInput, "set required epis", fmt.Errorf("unknown epi type %q", t))
		}
	}
	return c.mutate(func(s *ComposerState) error {
		s.RequiredEpis = append([]domain.EpiType(nil), required...)
		return nil
	})
}

// AddEpi appends the default row used by the "+ Adicionar EPI" action.
func (c *Composer) AddEpi() {
	_ = c.mutate(func(s *ComposerState) error {
		s.Epis = append(s.Epis, EpiDraft{
			Type:         domain.EpiSafetyGlasses,
			Detected:     true,
			Confidence:   0.85,
			ProperlyWorn: true,
		})
		return nil
	})
}

func (c *Composer) RemoveEpi(index int) error {
	return c.mutate(func(s *ComposerState) error {
		if index < 0 || index >= len(s.Epis) {
			return domain.WrapError(domain.ErrInvalidInput, "remove epi", fmt.Errorf("index %d out of range", index))
		}
		s.Epis = append(s.Epis[:index:index], s.Epis[index+1:]...)
		return nil
	})
}

// ClearEpis drops every PPE row.
func (c *Composer) ClearEpis() {
	_ = c.mutate(func(s *ComposerState) error {
		s.Epis = nil
		return nil
	})
}

// UpdateEpi sets one field of one row. Values are type-checked per field.
func (c *Composer) UpdateEpi(index int, field EpiField, value any) error {
	return c.mutate(func(s *ComposerState) error {
		if index < 0 || index >= len(s.Epis) {
			return domain.WrapError(domain.ErrInvalidInput, "update epi", fmt.Errorf("index %d out of range", index))
		}
		row := s.Epis[index]
		switch field {
		case EpiFieldType:
			raw, ok := value.(string)
			if !ok {
				if t, isType := value.(domain.EpiType); isType {
					raw, ok = string(t), true
				}
			}
			if !ok {
				return fieldTypeError(field, value)
			}
			t, err := domain.ParseEpiType(raw)
			if err != nil {
				return err
			}
			row.Type = t
		case EpiFieldDetected:
			b, ok := value.(bool)
			if !ok {
				return fieldTypeError(field, value)
			}
			row.Detected = b
		case EpiFieldProperlyWorn:
			b, ok := value.(bool)
			if !ok {
				return fieldTypeError(field, value)
			}
			row.ProperlyWorn = b
		case EpiFieldConfidence:
			f, ok := toFloat(value)
			if !ok {
				return fieldTypeError(field, value)
			}
			row.Confidence = clampUnit(f)
		default:
			return domain.WrapError(domain.ErrInvalidInput, "update epi", fmt.Errorf("unknown field %q", field))
		}
		s.Epis[index] = row
		return nil
	})
}

func (c *Composer) Reset() {
	_ = c.mutate(func(s *ComposerState) error {
		*s = c.defaults()
		return nil
	})
}

// Replace swaps the whole form, used when applying a scenario.
func (c *Composer) Replace(state ComposerState) {
	_ = c.mutate(func(s *ComposerState) error {
		*s = copyState(state)
		return nil
	})
}

func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state.Epis) > 0
}

func (c *Composer) Snapshot() ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyState(c.state)
}

// Build derives the orchestration request from the current form. An empty
// person id is sent as null, never as "".
func (c *Composer) Build() (domain.OrchestrationRequest, error) {
	s := c.Snapshot()
	if len(s.Epis) == 0 {
		return domain.OrchestrationRequest{}, domain.ErrNoEpiEvents
	}

	personID := optionalString(s.PersonID)
	epis := make([]domain.EpiEvent, 0, len(s.Epis))
	for _, row := range s.Epis {
		epis = append(epis, domain.EpiEvent{
			EpiType:      row.Type,
			Detected:     row.Detected,
			Confidence:   row.Confidence,
			ProperlyWorn: row.ProperlyWorn,
			PersonID:     personID,
			Location:     s.Location,
		})
	}

	required := s.RequiredEpis
	if len(required) == 0 {
		required = []domain.EpiType{domain.EpiHelmet}
	}

	return domain.OrchestrationRequest{
		FaceEvent: domain.FaceEvent{
			Detected:     s.FaceDetected,
			Confidence:   s.FaceConfidence,
			QualityScore: s.FaceQuality,
			PersonID:     personID,
			Location:     s.Location,
		},
		EpiEvents:    epis,
		PersonID:     personID,
		Location:     s.Location,
		RequiredEpis: required,
	}, nil
}

func copyState(s ComposerState) ComposerState {
	out := s
	out.Epis = append([]EpiDraft(nil), s.Epis...)
	out.RequiredEpis = append([]domain.EpiType(nil), s.RequiredEpis...)
	return out
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	out := v
	return &out
}

func clampUnit(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func fieldTypeError(field EpiField, value any) error {
	return domain.WrapError(domain.ErrInvalidInput, "update epi", fmt.Errorf("field %q does not accept %T", field, value))
}
