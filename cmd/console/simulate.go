package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/epi-console/internal/bootstrap"
	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/infrastructure/scenario"
	"github.com/kirillkom/epi-console/internal/presentation"
)

type simulateOptions struct {
	ScenarioPath string
	Name         string
	Repeat       int
	Pause        time.Duration

	PersonID       string
	Location       string
	NoFace         bool
	FaceConfidence float64
	FaceQuality    float64
	Epis           []string
	Required       []string
}

var simulateOpts simulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Compose and submit orchestration requests",
	Long: `Compose one request from flags, or every scenario of a YAML file, and
submit it to the orchestration service.

EPI flags take the form type[:confidence[:loose|missing]], e.g.
  --epi helmet:0.92 --epi vest:0.8:loose --epi gloves:0.7:missing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulate(cmd.Context(), cmd.OutOrStdout(), simulateOpts)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateOpts.ScenarioPath, "scenario", "", "YAML scenario file")
	f.StringVar(&simulateOpts.Name, "name", "", "run only the named scenario")
	f.IntVar(&simulateOpts.Repeat, "repeat", 1, "number of rounds")
	f.DurationVar(&simulateOpts.Pause, "pause", 0, "wait between submissions")
	f.StringVar(&simulateOpts.PersonID, "person-id", "", "person id (empty sends null)")
	f.StringVar(&simulateOpts.Location, "location", "", "location (default DEFAULT_LOCATION)")
	f.BoolVar(&simulateOpts.NoFace, "no-face", false, "report the face as not detected")
	f.Float64Var(&simulateOpts.FaceConfidence, "face-confidence", 0.95, "face confidence in [0,1]")
	f.Float64Var(&simulateOpts.FaceQuality, "face-quality", 0.90, "face quality score in [0,1]")
	f.StringArrayVar(&simulateOpts.Epis, "epi", []string{"helmet:0.92"}, "EPI detection, repeatable")
	f.StringSliceVar(&simulateOpts.Required, "required", nil, "required EPI types (default REQUIRED_EPIS)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(ctx context.Context, out io.Writer, opts simulateOptions) error {
	scenarios, err := selectScenarios(opts)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{LogWriter: io.Discard})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ROUND\tSCENARIO\tDECISION\tCONFIDENCE\tREASON")
	fmt.Fprintln(w, "-----\t--------\t--------\t----------\t------")

	failures := 0
	rounds := max(opts.Repeat, 1)
	for round := 1; round <= rounds; round++ {
		for _, sc := range scenarios {
			if ctx.Err() != nil {
				_ = w.Flush()
				return ctx.Err()
			}
			sc.Apply(app.Composer)

			decision, err := app.SubmitUC.Submit(ctx)
			if err != nil {
				failures++
				fmt.Fprintf(w, "%d\t%s\t%s\t-\t%s\n", round, sc.Name, "ERRO", err)
			} else {
				badge := presentation.Badge(decision.Decision)
				fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\n", round, sc.Name, badge.Icon, badge.Label,
					presentation.ConfidencePercent(decision.ConfidenceScore), decision.Reason)
			}

			if opts.Pause > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(opts.Pause):
				}
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d submissions failed", failures, rounds*len(scenarios))
	}
	return nil
}

func selectScenarios(opts simulateOptions) ([]scenario.Scenario, error) {
	if opts.ScenarioPath == "" {
		sc, err := flagScenario(opts)
		if err != nil {
			return nil, err
		}
		return []scenario.Scenario{sc}, nil
	}

	file, err := scenario.LoadFile(opts.ScenarioPath)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		return file.Scenarios, nil
	}
	sc, ok := file.Find(opts.Name)
	if !ok {
		return nil, fmt.Errorf("scenario %q not found in %s", opts.Name, opts.ScenarioPath)
	}
	return []scenario.Scenario{sc}, nil
}

// flagScenario builds a single scenario from command line flags and validates
// it like a scenario file entry.
func flagScenario(opts simulateOptions) (scenario.Scenario, error) {
	detected := !opts.NoFace
	confidence := opts.FaceConfidence
	quality := opts.FaceQuality
	sc := scenario.Scenario{
		Name:         "flags",
		PersonID:     opts.PersonID,
		Location:     opts.Location,
		Face:         &scenario.Face{Detected: &detected, Confidence: &confidence, QualityScore: &quality},
		RequiredEpis: opts.Required,
	}
	for _, raw := range opts.Epis {
		epi, err := parseEpiFlag(raw)
		if err != nil {
			return scenario.Scenario{}, err
		}
		sc.Epis = append(sc.Epis, epi)
	}

	if err := (scenario.File{Scenarios: []scenario.Scenario{sc}}).Validate(); err != nil {
		return scenario.Scenario{}, err
	}
	return sc, nil
}

func parseEpiFlag(raw string) (scenario.Epi, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 3 {
		return scenario.Epi{}, invalidEpiFlag(raw, errors.New("expected type[:confidence[:loose|missing]]"))
	}

	epi := scenario.Epi{Type: parts[0]}
	if len(parts) >= 2 && parts[1] != "" {
		confidence, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return scenario.Epi{}, invalidEpiFlag(raw, err)
		}
		epi.Confidence = &confidence
	}
	if len(parts) == 3 {
		no := false
		switch parts[2] {
		case "loose":
			epi.ProperlyWorn = &no
		case "missing":
			epi.Detected = &no
		default:
			return scenario.Epi{}, invalidEpiFlag(raw, fmt.Errorf("unknown modifier %q", parts[2]))
		}
	}
	return epi, nil
}

func invalidEpiFlag(raw string, err error) error {
	return domain.WrapError(domain.ErrInvalidInput, fmt.Sprintf("parse --epi %q", raw), err)
}
