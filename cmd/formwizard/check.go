package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

var (
	checkKind      string
	checkRequired  bool
	checkMinLength int
	checkMaxLength int
	checkPattern   string
)

var checkCmd = &cobra.Command{
	Use:   "check <value>",
	Short: "Validate a single value against a field kind and constraints",
	Example: `  formwizard check --kind email not-an-email
  formwizard check --kind text --min-length 2 --pattern '^[a-z]+$' ab`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := model.ParseKind(checkKind)
		if !ok {
			return fmt.Errorf("unknown kind %q (one of %s)", checkKind, kindList())
		}
		field := model.Field{
			ID:    "value",
			Kind:  kind,
			Value: args[0],
			Constraints: model.Constraints{
				Required: checkRequired,
				Pattern:  checkPattern,
			},
		}
		if cmd.Flags().Changed("min-length") {
			field.Constraints.MinLength = &checkMinLength
		}
		if cmd.Flags().Changed("max-length") {
			field.Constraints.MaxLength = &checkMaxLength
		}

		v := validation.New(validation.WithLocalizer(i18n.NewLocalizer(cfg.Locale)), validation.WithLogger(logger))
		result := v.Validate(field)
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Valid {
			return exitError{code: 2}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkKind, "kind", "k", string(model.KindText), "field kind")
	checkCmd.Flags().BoolVar(&checkRequired, "required", false, "reject empty values")
	checkCmd.Flags().IntVar(&checkMinLength, "min-length", 0, "minimum length in characters")
	checkCmd.Flags().IntVar(&checkMaxLength, "max-length", 0, "maximum length in characters")
	checkCmd.Flags().StringVar(&checkPattern, "pattern", "", "regular expression the value must match")
	rootCmd.AddCommand(checkCmd)
}

func kindList() string {
	kinds := model.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
