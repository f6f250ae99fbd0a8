package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	csv "github.com/arcrecord/tablecsv"
)

func newValidateCmd(app *appContext) *cobra.Command {
	var dialectName string

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Parse a document and report the first structural error found",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args)
			if err != nil {
				return err
			}
			dialect, err := resolveDialect(app.presets, dialectName)
			if err != nil {
				return err
			}
			opts := csv.DefaultParseOptions()
			opts.Dialect = dialect

			table, err := csv.ParseTable(data, opts)
			if err != nil {
				ce, ok := err.(*csv.Error)
				if !ok {
					return err
				}
				app.logger.Warn("validation failed",
					zap.String("code", ce.Code.String()),
					zap.Int("offset", ce.Offset),
					zap.Int("line", ce.Line),
					zap.Int("column", ce.Column),
				)
				fmt.Printf("invalid: %s\n", ce.Error())
				if ce.Snippet != nil {
					fmt.Printf("%s\n", ce.Snippet.Text)
				}
				return ce
			}
			defer table.Free()

			fmt.Println("valid")
			app.logger.Info("validation passed", zap.Int("rows", table.RowCount()))
			return nil
		},
	}

	cmd.Flags().StringVar(&dialectName, "dialect", "default", "named dialect preset")
	return cmd
}
