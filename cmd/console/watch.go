package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/epi-console/internal/bootstrap"
	"github.com/kirillkom/epi-console/internal/presentation"
)

const clearScreen = "\033[H\033[2J"

var watchOnce bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Render the dashboard in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "fetch once, print and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, out io.Writer) error {
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{LogWriter: os.Stderr})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	render := func(clear bool) error {
		vm := app.Views.Build(app.Board.Snapshot(), app.Composer.Snapshot())
		if clear {
			fmt.Fprint(out, clearScreen)
		}
		return presentation.RenderTerminal(out, vm)
	}

	if watchOnce {
		app.Poller.RefreshNow(ctx)
		return render(false)
	}

	changed := make(chan struct{}, 1)
	unsubscribe := app.Board.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	app.Start(ctx)

	// The freshness line ages even without new data.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		case <-ticker.C:
		}
		if err := render(true); err != nil {
			return err
		}
	}
}
