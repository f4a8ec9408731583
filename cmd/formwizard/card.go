package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard"
)

var cardCmd = &cobra.Command{
	Use:     "card <number>",
	Short:   "Check a card number with the Luhn algorithm",
	Example: `  formwizard card "4532 0151 1283 0366"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		card := formwizard.CheckCard(args[0])
		if err := printJSON(card); err != nil {
			return err
		}
		if !card.Valid {
			return exitError{code: 2}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cardCmd)
}
