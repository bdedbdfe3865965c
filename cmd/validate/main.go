// Command validate submits documents to the authenticity validation service
// from the terminal, one attempt per file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anime-shed/authenticity-validator-go/internal/client"
	"github.com/anime-shed/authenticity-validator-go/internal/config"
	"github.com/anime-shed/authenticity-validator-go/internal/controller"
	"github.com/anime-shed/authenticity-validator-go/internal/logger"
	"github.com/anime-shed/authenticity-validator-go/internal/render"
	"github.com/anime-shed/authenticity-validator-go/internal/worker"
	"github.com/anime-shed/authenticity-validator-go/pkg/models"
	"github.com/anime-shed/authenticity-validator-go/pkg/validation"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "validate",
		Usage:     "check documents with the authenticity validation service",
		ArgsUsage: "FILE...",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Value:   "http://localhost:8000",
				EnvVars: []string{"VALIDATION_SERVICE_URL"},
				Usage:   "validation service base URL",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   60 * time.Second,
				EnvVars: []string{"SERVICE_TIMEOUT"},
				Usage:   "give up on an upload after this long, 0 waits forever",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Value:   1,
				Usage:   "number of files validated at the same time",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print one JSON document with every outcome",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: run,
		// main decides the exit code
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

type fileReport struct {
	File  string               `json:"file"`
	State models.StateResponse `json:"state"`
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one FILE is required", 2)
	}
	logger.SetLevel(c.String("log-level"))

	base, err := validation.NewEndpointValidator().ValidateEndpoint(c.String("endpoint"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid endpoint: %v", err), 2)
	}
	timeout := c.Duration("timeout")
	if timeout < 0 {
		return cli.Exit("timeout must be >= 0", 2)
	}
	svc := client.NewHTTPValidationClient(base, timeout)

	files := c.Args().Slice()
	states := make([]models.InteractionState, len(files))
	openErrs := make([]error, len(files))

	pool := worker.NewPool(min(max(c.Int("concurrency"), 1), len(files)))
	pool.Start()
	for i, path := range files {
		i, path := i, path
		pool.Submit(func() {
			states[i], openErrs[i] = validateFile(c.Context, svc, path)
		})
	}
	pool.Wait()
	pool.Close()

	reports := make([]fileReport, 0, len(files))
	failed := 0
	for i, path := range files {
		if openErrs[i] != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, openErrs[i])
		}
		st := states[i]
		if st.Phase != models.PhaseSucceeded {
			failed++
		}

		if c.Bool("json") {
			reports = append(reports, fileReport{File: path, State: st.Response()})
			continue
		}
		fmt.Fprintf(c.App.Writer, "== %s ==\n", path)
		if err := render.WriteText(c.App.Writer, st); err != nil {
			return err
		}
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d validations failed", failed, len(files)), 1)
	}
	return nil
}

// validateFile drives one controller through select and submit. A file that
// cannot be opened leaves nothing selected, so the attempt fails locally.
func validateFile(ctx context.Context, svc client.ValidationService, path string) (models.InteractionState, error) {
	ctrl := controller.New(path, svc)

	sel, err := models.OpenSelection(path)
	ctrl.SelectFile(ctx, sel)
	return ctrl.Submit(ctx), err
}
