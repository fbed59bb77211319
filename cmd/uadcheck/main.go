// Package main provides the uadcheck binary: it validates a UAD 1004
// appraisal payload against a ruleset and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"uadcheck/internal/payload"
	"uadcheck/internal/platform/config"
	"uadcheck/internal/platform/logger"
	"uadcheck/internal/registry"
	"uadcheck/internal/registry/builtin"
	"uadcheck/internal/validation"
	"uadcheck/internal/validation/metrics"
	dErrors "uadcheck/pkg/domain-errors"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

const appName = "uadcheck"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type validateFlags struct {
	payloadPath string
	configPath  string
	rulesDir    string
	schemaRef   string
	registryRef string
	logLevel    string
	logFormat   string
	quiet       bool
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "UAD 1004 appraisal rule validation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.AddCommand(validateCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

// versionCmd reports the ruleset version validate would stamp on results.
func versionCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (ruleset %s)\n", appName, version, cfg.RulesetVersion)
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	return cmd
}

func validateCmd() *cobra.Command {
	var f validateFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a payload and print the result JSON",
		Long: `Validate reads an appraisal payload, either bare or wrapped in an
extraction envelope {"payload": {...}}, evaluates it against the configured
ruleset and prints the result JSON to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.payloadPath, "payload", "p", "", "Payload JSON file (- for stdin)")
	flags.StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&f.rulesDir, "rules-dir", "", "Directory holding rule documents (default: built-in ruleset)")
	flags.StringVar(&f.schemaRef, "schema", "", "Schema path relative to the rules root")
	flags.StringVar(&f.registryRef, "registry", "", "Field registry path relative to the rules root")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Print compact JSON")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, f validateFlags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())

	doc, err := readPayload(cmd.InOrStdin(), f.payloadPath)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}

	result, err := svc.Validate(ctx, doc, cfg.Rules.SchemaPath, cfg.Rules.RegistryPath)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !f.quiet {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

// applyFlags overlays explicitly set flags on top of file and env config.
func applyFlags(cfg *config.Config, f validateFlags) {
	if f.rulesDir != "" {
		cfg.Rules.Dir = f.rulesDir
	}
	if f.schemaRef != "" {
		cfg.Rules.SchemaPath = f.schemaRef
	}
	if f.registryRef != "" {
		cfg.Rules.RegistryPath = f.registryRef
	}
	if f.logLevel != "" {
		cfg.Log.Level = strings.ToLower(f.logLevel)
	}
	if f.logFormat != "" {
		cfg.Log.Format = strings.ToLower(f.logFormat)
	}
}

func newService(cfg *config.Config, log *slog.Logger) (*validation.Service, error) {
	loader := registry.NewLoader(rulesFS(cfg.Rules.Dir),
		registry.WithLogger(log),
		registry.WithSignaturePath(cfg.Rules.SignaturePath),
		registry.WithPhotoPath(cfg.Rules.PhotoPath),
	)
	return validation.New(loader,
		validation.WithLogger(log),
		validation.WithMetrics(metrics.New(prometheus.NewRegistry())),
		validation.WithRulesetVersion(cfg.RulesetVersion),
	)
}

func rulesFS(dir string) fs.FS {
	if dir == "" {
		return builtin.FS()
	}
	return os.DirFS(dir)
}

// readPayload decodes the payload file, unwrapping an extraction envelope
// when the top-level object carries a "payload" mapping.
func readPayload(stdin io.Reader, path string) (payload.Document, error) {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("open payload %s", path))
		}
		defer file.Close()
		r = file
	}

	doc, err := payload.Decode(r)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "read payload")
	}
	if inner, ok := doc["payload"].(map[string]any); ok {
		return inner, nil
	}
	return doc, nil
}
