// Package cli implements agentctl, the operator command line for running
// commands through the pipeline without the HTTP API.
package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voicevault-gateway/config"
	"voicevault-gateway/internal/adapter/http/dto"
	"voicevault-gateway/internal/app"
	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitRejected = 3
)

// Runner executes agentctl with injectable output streams.
type Runner struct {
	stdout io.Writer
	stderr io.Writer
}

// NewRunner creates a Runner writing to the process streams.
func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

// NewRunnerWithWriters creates a Runner writing to the given streams.
func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{stdout: stdout, stderr: stderr}
}

type globalFlags struct {
	configPath string
	output     string
	userID     string
	logLevel   string
	live       bool
}

type runtimeState struct {
	runner   *Runner
	flags    globalFlags
	cfg      *config.Config
	log      zerolog.Logger
	pipeline *app.Pipeline
	exitCode int
}

// usageError marks errors caused by bad arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Run executes args and returns the process exit code.
func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		state.renderError(err)
		var uerr usageError
		if errors.As(err, &uerr) || isCobraUsageError(err) {
			return ExitUsage
		}
		return ExitError
	}
	return state.exitCode
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentctl",
		Short: "Run natural-language wallet commands through the agent pipeline",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return s.setup()
		},
	}
	s.bindGlobalFlags(cmd.PersistentFlags())

	cmd.AddCommand(s.newParseCommand(), s.newCheckCommand(), s.newRunCommand())
	return cmd
}

func (s *runtimeState) bindGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.flags.configPath, "config", "", "path to a config file (default ./config.yaml)")
	fs.StringVarP(&s.flags.output, "output", "o", "json", "output format: json or yaml")
	fs.StringVar(&s.flags.userID, "user-id", "", "wallet user id (default pipeline.default_user_id)")
	fs.StringVar(&s.flags.logLevel, "log-level", "warn", "log level written to stderr")
	fs.BoolVar(&s.flags.live, "live", false, "use the configured executor and portfolio source instead of the simulated ones")
}

// setup loads configuration and wires the pipeline. Without --live the
// executor is simulated and the portfolio is static.
func (s *runtimeState) setup() error {
	switch s.flags.output {
	case "json", "yaml":
	default:
		return usageError{fmt.Errorf("unsupported output %q, want json or yaml", s.flags.output)}
	}

	cfg, err := config.Load(s.flags.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	s.log = logger.NewWithWriter(s.flags.logLevel, s.runner.stderr)

	if !s.flags.live {
		cfg.Pipeline.ExecutorMode = app.ExecutorSimulated
		cfg.Pipeline.PortfolioSource = app.PortfolioStatic
	}
	if cfg.Security.SigningSecret == "" && cfg.Security.MasterKey == "" {
		secret, err := ephemeralSecret()
		if err != nil {
			return err
		}
		cfg.Security.SigningSecret = secret
		s.log.Warn().Msg("no signing key configured, confirmation hashes use an ephemeral key")
	}
	if s.flags.userID == "" {
		s.flags.userID = cfg.Pipeline.DefaultUserID
	}
	s.cfg = cfg

	pipeline, err := app.NewPipeline(cfg, app.NewCustodian(cfg.Circle, s.log), s.log)
	if err != nil {
		return err
	}
	s.pipeline = pipeline
	return nil
}

func (s *runtimeState) newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text>",
		Short: "Parse a command into an intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := s.pipeline.Parser.Parse(cmd.Context(), commandText(args))
			if err != nil {
				return err
			}
			return s.render(intent)
		},
	}
}

func (s *runtimeState) newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <text>",
		Short: "Run parse, portfolio, risk and security without executing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := s.pipeline.Check(cmd.Context(), commandText(args), s.flags.userID)
			if err != nil {
				return err
			}
			if !report.Approved() {
				s.exitCode = ExitRejected
			}
			return s.render(dto.CheckResponse{
				Intent:    report.Intent,
				Portfolio: report.Portfolio,
				Risk:      report.Risk,
				Security:  report.Security,
				Approved:  report.Approved(),
			})
		},
	}
}

func (s *runtimeState) newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <text>",
		Short: "Run a command through the full pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := s.pipeline.Run(cmd.Context(), commandText(args), s.flags.userID)
			_, body := dto.NewRunResponse(outcome)
			switch outcome.Status() {
			case domain.RunRejected:
				s.exitCode = ExitRejected
			case domain.RunFailed:
				s.exitCode = ExitError
			}
			return s.render(body)
		},
	}
}

func (s *runtimeState) render(v any) error {
	return Render(s.runner.stdout, s.flags.output, v)
}

func (s *runtimeState) renderError(err error) {
	format := s.flags.output
	if format != "yaml" {
		format = "json"
	}
	_ = Render(s.runner.stderr, format, map[string]string{"error": err.Error()})
}

// commandText joins unquoted words so `agentctl run transfer 5 usdc to 0x..` works.
func commandText(args []string) string {
	return strings.Join(args, " ")
}

func ephemeralSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating ephemeral signing key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func isCobraUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.Contains(msg, "requires at least")
}
