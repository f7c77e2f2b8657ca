package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legal-ai/legal-assistant/internal/app"
	"github.com/legal-ai/legal-assistant/internal/config"
	"github.com/legal-ai/legal-assistant/internal/model"
	"github.com/legal-ai/legal-assistant/pkg/logger"
)

type rootOptions struct {
	verbose bool
	user    string
	lang    string
	json    bool

	// open builds the service graph; tests swap it.
	open func(ctx context.Context, opts app.Options) (*app.App, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(nil)
}

func newRootCmdWith(open func(ctx context.Context, opts app.Options) (*app.App, error)) *cobra.Command {
	ro := &rootOptions{open: open}
	if ro.open == nil {
		ro.open = ro.openApp
	}

	cmd := &cobra.Command{
		Use:           "legalctl",
		Short:         "Legal assistant command line",
		Long:          "legalctl runs searches, suggestions and chat turns against the configured stores and provider.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.PersistentFlags().BoolVarP(&ro.verbose, "verbose", "v", false, "log to stderr")
	cmd.PersistentFlags().StringVarP(&ro.user, "user", "u", "cli", "user id that owns conversations")
	cmd.PersistentFlags().StringVarP(&ro.lang, "lang", "l", "en", "language: en or bn")
	cmd.PersistentFlags().BoolVar(&ro.json, "json", false, "output JSON")

	cmd.AddCommand(
		newSearchCmd(ro),
		newSuggestCmd(ro),
		newAskCmd(ro),
		newExportCmd(ro),
	)
	return cmd
}

func (ro *rootOptions) language() model.Language {
	return model.ParseLanguage(ro.lang)
}

func (ro *rootOptions) openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !opts.WithoutChat {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log := logger.NewNop()
	if ro.verbose {
		if log, err = logger.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, log, opts)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
