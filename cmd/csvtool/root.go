package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// appContext bundles the state every subcommand needs: a logger already
// tagged with this invocation's run ID, and the preset table resolved
// from --config plus the built-in presets.
type appContext struct {
	logger *zap.Logger
	runID  string

	presets map[string]DialectPreset

	logLevel string
	cfgPath  string
}

func newAppContext() *appContext {
	return &appContext{runID: uuid.NewString()}
}

func (a *appContext) buildLogger() error {
	cfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", a.logLevel, err)
	}
	cfg.Level = level
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	a.logger = logger.With(zap.String("run_id", a.runID))
	return nil
}

// NewRootCmd builds the csvtool command tree: persistent flags for
// logging and dialect presets, with parse/convert/validate/load/serve
// as subcommands.
func NewRootCmd() *cobra.Command {
	app := newAppContext()

	root := &cobra.Command{
		Use:           "csvtool",
		Short:         "Parse, convert, validate, load, and serve CSV-family documents",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.buildLogger(); err != nil {
				return err
			}
			presets, err := loadPresets(app.cfgPath)
			if err != nil {
				return err
			}
			app.presets = presets
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&app.cfgPath, "config", "", "optional YAML file of additional dialect presets")

	root.AddCommand(newParseCmd(app))
	root.AddCommand(newConvertCmd(app))
	root.AddCommand(newValidateCmd(app))
	root.AddCommand(newLoadCmd(app))
	root.AddCommand(newServeCmd(app))

	return root
}

type runIDKeyType struct{}

var runIDKey runIDKeyType

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func runIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}
