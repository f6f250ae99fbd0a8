package main

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	csv "github.com/arcrecord/tablecsv"
)

func newLoadCmd(app *appContext) *cobra.Command {
	var dialectName, dbPath, tableName string

	cmd := &cobra.Command{
		Use:   "load [file]",
		Short: "Parse a document and load it into a SQLite table",
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
			opts.Dialect.TreatFirstRowAsHeader = true

			table, err := csv.ParseTable(data, opts)
			if err != nil {
				return describeParseError(err)
			}
			defer table.Free()

			db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000&_synchronous=FULL")
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			if err := loadTable(db, tableName, table); err != nil {
				return err
			}

			app.logger.Info("loaded table into sqlite",
				zap.String("db", dbPath),
				zap.String("table", tableName),
				zap.Int("rows", table.RowCount()),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&dialectName, "dialect", "default", "named dialect preset")
	cmd.Flags().StringVar(&dbPath, "db", "csvtool.db", "path to the SQLite database file")
	cmd.Flags().StringVar(&tableName, "table", "data", "destination table name")
	return cmd
}

// loadTable creates tableName (one TEXT column per header, or col_N
// when the source had no header) and inserts one row per data row.
func loadTable(db *sql.DB, tableName string, table *csv.Table) error {
	cols := make([]string, table.ColumnCount())
	for i := range cols {
		name, ok := table.HeaderName(i)
		if !ok || name == "" {
			name = fmt.Sprintf("col_%d", i)
		}
		cols[i] = quoteIdent(name)
	}

	createStmt := "CREATE TABLE IF NOT EXISTS " + quoteIdent(tableName) + " (" + joinComma(colsWithType(cols)) + ")"
	if _, err := db.Exec(createStmt); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertStmt := "INSERT INTO " + quoteIdent(tableName) + " (" + joinComma(cols) + ") VALUES (" + joinComma(placeholders) + ")"

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < table.RowCount(); i++ {
		row, _ := table.Row(i)
		values := make([]any, len(cols))
		for c := range values {
			if c < row.Width() {
				values[c] = row.Field(c).String()
			} else {
				values[c] = ""
			}
		}
		if _, err := stmt.Exec(values...); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func colsWithType(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c + " TEXT"
	}
	return out
}

func quoteIdent(name string) string {
	return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
