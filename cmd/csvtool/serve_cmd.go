package main

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	csv "github.com/arcrecord/tablecsv"
)

type validateRequest struct {
	Dialect string `json:"dialect"`
	Data    string `json:"data"`
}

type convertRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"`
}

func newServeCmd(app *appContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve validate/convert over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			router := mux.NewRouter()
			router.Use(runIDMiddleware(app))
			router.HandleFunc("/validate", handleValidate(app)).Methods("POST")
			router.HandleFunc("/convert", handleConvert(app)).Methods("POST")
			router.HandleFunc("/health", handleHealth).Methods("GET")

			app.logger.Info("serving", zap.String("addr", addr))
			return http.ListenAndServe(addr, router)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

// runIDMiddleware tags each request with a fresh run ID, both on the
// response header (so a client can correlate a call with server logs)
// and in the request context (so handlers can log it consistently).
func runIDMiddleware(app *appContext) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set("X-Run-Id", id)
			next.ServeHTTP(w, r.WithContext(withRunID(r.Context(), id)))
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handleValidate(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		dialect, err := resolveDialect(app.presets, defaultIfEmpty(req.Dialect, "default"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		opts := csv.DefaultParseOptions()
		opts.Dialect = dialect

		table, err := csv.ParseTable([]byte(req.Data), opts)
		if err != nil {
			ce, ok := err.(*csv.Error)
			if !ok {
				respondError(w, http.StatusInternalServerError, err)
				return
			}
			app.logger.Info("serve validate failed",
				zap.String("run_id", runIDFromContext(r.Context())),
				zap.String("code", ce.Code.String()),
			)
			respondJSON(w, http.StatusOK, map[string]any{
				"valid": false,
				"code":  ce.Code.String(),
				"error": ce.Error(),
			})
			return
		}
		defer table.Free()
		respondJSON(w, http.StatusOK, map[string]any{
			"valid":   true,
			"rows":    table.RowCount(),
			"columns": table.ColumnCount(),
		})
	}
}

func handleConvert(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req convertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		fromDialect, err := resolveDialect(app.presets, defaultIfEmpty(req.From, "default"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		toDialect, err := resolveDialect(app.presets, defaultIfEmpty(req.To, "default"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}

		opts := csv.DefaultParseOptions()
		opts.Dialect = fromDialect
		table, err := csv.ParseTable([]byte(req.Data), opts)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err)
			return
		}
		defer table.Free()

		sink := csv.NewBufferSink()
		writeOpts := csv.DefaultWriteOptions()
		writeOpts.Dialect = toDialect
		writer := csv.NewWriter(sink, writeOpts)
		if err := writer.WriteTable(table, table.HasHeader()); err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}

		app.logger.Info("serve convert ok",
			zap.String("run_id", runIDFromContext(r.Context())),
			zap.Int("rows", table.RowCount()),
		)
		w.Header().Set("Content-Type", "text/csv")
		if _, err := w.Write(sink.Bytes()); err != nil {
			app.logger.Warn("writing response body failed", zap.Error(err))
		}
	}
}

func defaultIfEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func respondJSON(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
