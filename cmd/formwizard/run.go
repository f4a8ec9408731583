package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/pkg/definition"
	"github.com/goliatone/go-formwizard/pkg/i18n"
	"github.com/goliatone/go-formwizard/pkg/page"
	"github.com/goliatone/go-formwizard/pkg/tui"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

var (
	operationID string
	endpoint    string
	metricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run <definition>",
	Short: "Fill in a form interactively",
	Long: `Loads a YAML form definition or an OpenAPI document (file or http(s) URL)
and prompts for each step. The completed form is posted to its endpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runWizard(ctx, args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&operationID, "operation", "", "OpenAPI operation id describing the form")
	runCmd.Flags().StringVar(&endpoint, "endpoint", "", "override the submission endpoint")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(runCmd)
}

func runWizard(ctx context.Context, raw string) error {
	form, err := formwizard.LoadDefinition(ctx, raw,
		definition.WithOperation(operationID),
		definition.WithLogger(logger))
	if err != nil {
		return err
	}
	if endpoint != "" {
		cfg.Submit.Endpoint = endpoint
	}

	options := []formwizard.RuntimeOption{formwizard.WithLogger(logger)}
	addr := cfg.Metrics.Addr
	if metricsAddr != "" {
		addr = metricsAddr
	}
	if addr != "" {
		reg := prometheus.NewRegistry()
		options = append(options, formwizard.WithRegisterer(reg))
		shutdown := serveMetrics(addr, reg)
		defer shutdown()
	}

	rt, err := formwizard.NewRuntime(cfg, options...)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close", zap.Error(err))
		}
	}()

	w, err := rt.NewWizard(form, wizard.WithPage(page.NewMemory()), wizard.WithContext(ctx))
	if err != nil {
		return err
	}
	defer w.Close()

	session, err := tui.NewSession(w,
		tui.WithLocalizer(rt.Localizer()),
		tui.WithLogger(logger),
		tui.WithPromptDriver(tui.NewSurveyDriver(os.Stdout)))
	if err != nil {
		return err
	}

	resp, err := session.Run(ctx)
	switch {
	case errors.Is(err, tui.ErrAborted):
		fmt.Fprintln(os.Stderr, rt.Localizer().T(i18n.KeyActionQuit))
		return nil
	case err != nil:
		return err
	}
	logger.Info("form completed", zap.String("form", form.ID), zap.String("request_id", resp.RequestID))
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
