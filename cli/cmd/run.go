package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/tessellary/ideastream/cli/config"
	"github.com/tessellary/ideastream/cli/tui"
	"github.com/tessellary/ideastream/diag"
	"github.com/tessellary/ideastream/log"
	"github.com/tessellary/ideastream/metrics"
	"github.com/tessellary/ideastream/pipeline"
	"github.com/tessellary/ideastream/transcript"
	"github.com/tessellary/ideastream/transport"
	"github.com/tessellary/ideastream/types"
)

// Exit codes for stream-driving commands.
const (
	exitSuccess         = 0
	exitGenerationError = 1
	exitStreamError     = 2
	exitInvalidInput    = 3
	// exitCanceled follows the shell convention for SIGINT.
	exitCanceled = 130
)

// RunCommand returns the run command, the primary execution entrypoint.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start a streaming idea generation run",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "title",
				Usage:    "Idea title",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "hypothesis",
				Usage:    "Idea hypothesis",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "LLM model (overrides config)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "LLM provider (overrides config)",
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "Generation endpoint URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "record",
				Usage: "Record the raw stream to a transcript file",
			},
		}, StreamFlags()...),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalidInput)
	}

	req := types.Request{
		Title:      c.String("title"),
		Hypothesis: c.String("hypothesis"),
		Model:      firstNonEmpty(c.String("model"), cfg.Model),
		Provider:   firstNonEmpty(c.String("provider"), cfg.Provider),
	}

	endpoint := firstNonEmpty(c.String("endpoint"), cfg.Endpoint)
	if endpoint == "" {
		return cli.Exit("no endpoint configured: pass --endpoint or set it in the config file", exitInvalidInput)
	}

	opener, err := transport.New(transport.Config{
		URL:            endpoint,
		Headers:        cfg.Headers,
		ConnectTimeout: cfg.ConnectTimeout.Duration,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid endpoint: %v", err), exitInvalidInput)
	}

	var recorder *transcript.Writer
	if path := c.String("record"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot create transcript file: %v", err), exitInvalidInput)
		}
		defer f.Close()

		recorder, err = transcript.NewWriter(f, transcript.Header{
			StartedAt: time.Now(),
			Title:     req.Title,
			Model:     req.Model,
			Provider:  req.Provider,
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot start transcript: %v", err), exitInvalidInput)
		}
	}

	exit := executeStream(c, cfg, opener, req, recorder)
	if recorder != nil {
		if werr := recorder.Err(); werr != nil {
			fmt.Fprintf(os.Stderr, "Warning: transcript is incomplete: %v\n", werr)
		}
	}
	return exit
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// buildSink selects the diagnostics destination: the configured webhook
// when present, the structured log otherwise. A bad webhook config falls
// back to the log; diagnostics must never block a run.
func buildSink(cfg *config.Config, logger *log.Logger) diag.Sink {
	if cfg.Diagnostics.URL == "" {
		return diag.NewLogSink(logger)
	}

	wcfg := diag.WebhookConfig{
		URL:     cfg.Diagnostics.URL,
		Headers: cfg.Diagnostics.Headers,
		Timeout: cfg.Diagnostics.Timeout.Duration,
	}
	if cfg.Diagnostics.Retries != nil {
		wcfg.Retries = *cfg.Diagnostics.Retries
	}

	sink, err := diag.NewWebhookSink(wcfg, logger)
	if err != nil {
		logger.Warn("invalid diagnostics webhook config, reporting to log instead", map[string]any{
			"error": err.Error(),
		})
		return diag.NewLogSink(logger)
	}
	return sink
}

// executeStream drives one pipeline run against the given opener and maps
// its outcome to an exit code. Shared by run and replay.
func executeStream(c *cli.Context, cfg *config.Config, opener transport.Opener, req types.Request, recorder *transcript.Writer) error {
	quiet := c.Bool("quiet")

	logger := log.Nop()
	if !quiet {
		logger = log.NewLogger(pipeline.Feature)
	}

	autoNavigate := cfg.NavigateEnabled() && !c.Bool("no-navigate")
	collector := metrics.NewCollector()

	opts := pipeline.Options{
		Transport:    opener,
		Diagnostics:  buildSink(cfg, logger),
		Logger:       logger,
		Collector:    collector,
		AutoNavigate: autoNavigate,
	}
	if recorder != nil {
		opts.FrameObserver = recorder.Observe
	}

	if c.Bool("tui") {
		return runWithTUI(c.Context, opts, req)
	}
	return runPlain(c.Context, opts, req, quiet)
}

// runPlain streams text to stdout as it arrives and prints a one-line
// summary at the end.
func runPlain(ctx context.Context, opts pipeline.Options, req types.Request, quiet bool) error {
	done := make(chan types.Outcome, 1)
	var mu sync.Mutex
	printed := 0

	opts.Navigator = pipeline.NavigatorFunc(func(target string) {
		if !quiet {
			fmt.Printf("\n→ %s\n", target)
		}
	})
	opts.OnTransition = func(st types.PipelineState) {
		if quiet {
			return
		}
		mu.Lock()
		if len(st.Text) > printed {
			fmt.Print(st.Text[printed:])
			printed = len(st.Text)
		}
		mu.Unlock()
	}
	opts.OnStreamEnd = func(_ types.PipelineState, out types.Outcome) {
		done <- out
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		p.Cancel()
	}()

	if err := p.Start(ctx, req); err != nil {
		return startError(err)
	}

	out := <-done
	if !quiet {
		fmt.Printf("\noutcome=%s", out.Status)
		if out.Message != "" {
			fmt.Printf(", message=%q", out.Message)
		}
		fmt.Println()
	}
	return cli.Exit("", outcomeToExitCode(out.Status))
}

// newRunProgram wires a pipeline to the run view. Pipeline callbacks
// deliver messages through prog.Send, which blocks until the program's
// event loop is receiving, so the run must only be started once prog.Run
// is underway.
func newRunProgram(opts pipeline.Options, req types.Request, progOpts ...tea.ProgramOption) (*tea.Program, *pipeline.Pipeline, error) {
	var prog *tea.Program

	opts.OnTransition = func(st types.PipelineState) {
		prog.Send(tui.StateMsg(st))
	}
	opts.OnStreamEnd = func(_ types.PipelineState, out types.Outcome) {
		prog.Send(tui.EndMsg(out))
	}
	opts.Navigator = pipeline.NavigatorFunc(func(target string) {
		prog.Send(tui.NavigateMsg{Target: target})
	})

	p, err := pipeline.New(opts)
	if err != nil {
		return nil, nil, err
	}

	model := tui.NewRunModel(tui.RunInfo{
		Title:    req.Title,
		Model:    req.Model,
		Provider: req.Provider,
	}, p.Cancel)
	prog = tea.NewProgram(model, progOpts...)
	return prog, p, nil
}

// runWithTUI shows the run in an interactive Bubble Tea view.
func runWithTUI(ctx context.Context, opts pipeline.Options, req types.Request) error {
	prog, p, err := newRunProgram(opts, req)
	if err != nil {
		return err
	}

	// The transition callbacks block until prog.Run drains them, so the
	// run starts off the main goroutine. A synchronous Start failure
	// quits the view and is surfaced after Run returns.
	startErr := make(chan error, 1)
	go func() {
		err := p.Start(ctx, req)
		startErr <- err
		if err != nil {
			prog.Quit()
		}
	}()

	if _, err := prog.Run(); err != nil {
		p.Cancel()
		return fmt.Errorf("TUI failed: %w", err)
	}
	if err := <-startErr; err != nil {
		return startError(err)
	}

	out := p.Outcome()
	if out == nil {
		// The view was quit before the run ended.
		p.Cancel()
		return cli.Exit("", exitCanceled)
	}
	return cli.Exit("", outcomeToExitCode(out.Status))
}

// startError maps a synchronous Start failure to an exit code. Validation
// mistakes are caller errors; everything else is unexpected.
func startError(err error) error {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		return cli.Exit(verr.Error(), exitInvalidInput)
	}
	return cli.Exit(err.Error(), exitStreamError)
}

func outcomeToExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return exitSuccess
	case types.OutcomeGenerationError:
		return exitGenerationError
	case types.OutcomeStreamError:
		return exitStreamError
	case types.OutcomeCanceled:
		return exitCanceled
	default:
		return exitStreamError
	}
}
