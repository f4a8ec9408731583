package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/config"
)

var (
	configPath string
	logLevel   string
	locale     string

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "formwizard",
	Short: "Accessible multi-step forms in the terminal",
	Long: `formwizard walks through a form definition step by step, validating
each field, announcing progress and submitting the result to the form's
endpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if locale != "" {
			cfg.Locale = locale
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(logging.Options{Level: level, Encoding: cfg.Log.Encoding})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// exitError carries a process exit code out of RunE so deferred cleanup
// runs before the process exits. Its output has already been printed.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	// cobra skips post-run hooks when RunE fails, so flush here.
	_ = logger.Sync()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "message locale (ru, en)")
}
