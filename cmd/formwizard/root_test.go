package main

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"explicit code", exitError{code: 2}, 2},
		{"wrapped code", errors.Join(errors.New("lint"), exitError{code: 1}), 1},
		{"plain error", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestCardCommandReturnsExitCode(t *testing.T) {
	t.Setenv("FORMWIZARD_LOG_LEVEL", "error")
	rootCmd.SetArgs([]string{"card", "1234567890123456"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	var exit exitError
	if !errors.As(err, &exit) || exit.code != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
}
