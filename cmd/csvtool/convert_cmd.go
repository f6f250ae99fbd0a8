package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	csv "github.com/arcrecord/tablecsv"
)

func newConvertCmd(app *appContext) *cobra.Command {
	var fromDialect, toDialect, outPath string
	var gzipOut, includeHeader bool

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Re-render a document under a different dialect",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args)
			if err != nil {
				return err
			}
			srcDialect, err := resolveDialect(app.presets, fromDialect)
			if err != nil {
				return err
			}
			dstDialect, err := resolveDialect(app.presets, toDialect)
			if err != nil {
				return err
			}

			opts := csv.DefaultParseOptions()
			opts.Dialect = srcDialect
			table, err := csv.ParseTable(data, opts)
			if err != nil {
				return describeParseError(err)
			}
			defer table.Free()

			out, closeOut, err := openOutput(outPath)
			if err != nil {
				return err
			}
			defer closeOut()

			var sink csv.Sink
			var gz *csv.GzipSink
			if gzipOut {
				gz = csv.NewGzipSink(out)
				sink = gz
			} else {
				sink = csv.NewCallbackSink(func(p []byte) error {
					_, err := out.Write(p)
					return err
				})
			}

			writeOpts := csv.DefaultWriteOptions()
			writeOpts.Dialect = dstDialect
			w := csv.NewWriter(sink, writeOpts)
			if err := w.WriteTable(table, includeHeader); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			if gz != nil {
				if err := gz.Close(); err != nil {
					return fmt.Errorf("closing gzip stream: %w", err)
				}
			}

			app.logger.Info("converted table",
				zap.String("from", fromDialect),
				zap.String("to", toDialect),
				zap.Int("rows", table.RowCount()),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromDialect, "from", "default", "source dialect preset")
	cmd.Flags().StringVar(&toDialect, "to", "default", "destination dialect preset")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file, or - for stdout")
	cmd.Flags().BoolVar(&gzipOut, "gzip", false, "gzip-compress the output")
	cmd.Flags().BoolVar(&includeHeader, "include-header", true, "write the header row if the source had one")
	return cmd
}
