package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard/pkg/definition"
)

var lintCmd = &cobra.Command{
	Use:   "lint <definition>...",
	Short: "Check form definitions and their OpenAPI extensions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := definition.NewLoader(definition.WithLogger(logger))
		failed := false
		for _, path := range args {
			problems, err := lintDefinition(cmd.Context(), loader, path)
			if err != nil {
				return fmt.Errorf("lint %s: %w", path, err)
			}
			for _, p := range problems {
				failed = true
				fmt.Fprintf(os.Stderr, "%s: %s\n", path, p)
			}
			logger.Debug("linted definition", zap.String("path", path), zap.Int("problems", len(problems)))
		}
		if failed {
			return exitError{code: 1}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

// lintDefinition reports extension misuse for OpenAPI documents and load
// errors for any definition. Operation selection is not linted since a
// document may describe several forms.
func lintDefinition(ctx context.Context, loader *definition.Loader, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !definition.IsOpenAPI(data) {
		if _, err := loader.Parse(ctx, data, path); err != nil {
			return []string{err.Error()}, nil
		}
		return nil, nil
	}
	violations, err := definition.LintOpenAPI(ctx, data)
	if err != nil {
		return nil, err
	}
	problems := make([]string, len(violations))
	for i, v := range violations {
		problems[i] = v.String()
	}
	return problems, nil
}
