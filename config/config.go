package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Environment selects which environment file is loaded.
type Environment string

const (
	EnvDev   Environment = "dev"
	EnvStage Environment = "stage"
	EnvProd  Environment = "prod"
)

// Options captures all command-line options of a grant run.
type Options struct {
	Environment Environment
	GrantFile   string
	ConfigDir   string
	LogDir      string
	LogLevel    string
	Timeout     time.Duration
	Encoding    string
	MetricsFile string
	DryRun      bool
}

// EnvironmentFile is the path of the environment file for the selected environment.
func (o Options) EnvironmentFile() string {
	return filepath.Join(o.ConfigDir, fmt.Sprintf("environment-%s.json", o.Environment))
}

// CheckGrantFile fails when no .csv argument was given.
func (o Options) CheckGrantFile() error {
	if strings.TrimSpace(o.GrantFile) == "" {
		return &ArgumentError{Reason: "No CSV file in arguments.  Expected an argument in the format '-{name}.csv'."}
	}
	return nil
}

// ArgumentError reports a command line the dispatcher cannot run with.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return e.Reason
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	cmd.FParseErrWhitelist.UnknownFlags = true
	flags := cmd.Flags()
	flags.Bool(string(EnvDev), false, "Use environment-dev.json (default)")
	flags.Bool(string(EnvStage), false, "Use environment-stage.json")
	flags.Bool(string(EnvProd), false, "Use environment-prod.json")
	flags.String("config-dir", ".", "Directory holding the environment-<env>.json files")
	flags.String("log-dir", ".", "Directory for the per-run grant log")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.Duration("timeout", 30*time.Second, "HTTP timeout for a single delivery attempt")
	flags.String("encoding", "utf-8", "Grant file encoding: utf-8, windows-1251, windows-1252")
	flags.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	flags.Bool("dry-run", false, "Parse, build and validate every message without sending")
	return nil
}

// LoadOptions converts the parsed Cobra flags and arguments into Options with validation.
func LoadOptions(cmd *cobra.Command, args []string) (Options, error) {
	flags := cmd.Flags()

	dev, err := flags.GetBool(string(EnvDev))
	if err != nil {
		return Options{}, err
	}
	stage, err := flags.GetBool(string(EnvStage))
	if err != nil {
		return Options{}, err
	}
	prod, err := flags.GetBool(string(EnvProd))
	if err != nil {
		return Options{}, err
	}
	configDir, err := flags.GetString("config-dir")
	if err != nil {
		return Options{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Options{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Options{}, err
	}
	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return Options{}, err
	}
	encoding, err := flags.GetString("encoding")
	if err != nil {
		return Options{}, err
	}
	metricsFile, err := flags.GetString("metrics-file")
	if err != nil {
		return Options{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Options{}, err
	}

	env := EnvDev
	switch {
	case dev:
	case stage:
		env = EnvStage
	case prod:
		env = EnvProd
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	opts := Options{
		Environment: env,
		GrantFile:   GrantFile(args),
		ConfigDir:   filepath.Clean(configDir),
		LogDir:      filepath.Clean(logDir),
		LogLevel:    logLevel,
		Timeout:     timeout,
		Encoding:    strings.ToLower(encoding),
		MetricsFile: metricsFile,
		DryRun:      dryRun,
	}

	if err := validateOptions(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func validateOptions(opts Options) error {
	if opts.Timeout <= 0 {
		return &ArgumentError{Reason: "--timeout must be positive"}
	}
	switch opts.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ArgumentError{Reason: fmt.Sprintf("invalid --log-level: %s", opts.LogLevel)}
	}
	return nil
}

// GrantFile returns the first argument naming a .csv file, or "" when none does.
func GrantFile(args []string) string {
	for _, arg := range args {
		if strings.HasSuffix(strings.ToLower(arg), ".csv") {
			return arg
		}
	}
	return ""
}

// NormalizeArgs rewrites the single-dash forms the tool has always accepted so
// Cobra can parse them: -dev, -stage and -prod become long flags and
// "-grants.csv" becomes the positional "grants.csv". Any other single-dash
// token is dropped, as it always was; -h is kept for help.
func NormalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	expectValue := false
	for _, arg := range args {
		if expectValue {
			out = append(out, arg)
			expectValue = false
			continue
		}
		switch {
		case arg == "-"+string(EnvDev), arg == "-"+string(EnvStage), arg == "-"+string(EnvProd):
			out = append(out, "-"+arg)
		case len(arg) > 1 && arg[0] == '-' && arg[1] != '-' && strings.HasSuffix(strings.ToLower(arg), ".csv"):
			out = append(out, arg[1:])
		case arg == "-h":
			out = append(out, arg)
		case len(arg) > 1 && arg[0] == '-' && arg[1] != '-':
		default:
			out = append(out, arg)
			expectValue = takesValue(arg)
		}
	}
	return out
}

// takesValue reports whether arg is a long flag whose value is the next token.
func takesValue(arg string) bool {
	if !strings.HasPrefix(arg, "--") || strings.Contains(arg, "=") {
		return false
	}
	switch strings.TrimPrefix(arg, "--") {
	case "config-dir", "log-dir", "log-level", "timeout", "encoding", "metrics-file":
		return true
	}
	return false
}
