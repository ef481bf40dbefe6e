// CLAUDE:SUMMARY HTTP export API — chi router with health, export, and journal endpoints over an injected opener.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/chsave/journal"
	"github.com/hazyhaar/chsave/snapshot"
)

// exportRunners maps the wire format name to its exporter strategy.
var exportRunners = map[string]struct {
	defaultName string
	run         func(e *snapshot.Exporter, ctx context.Context, filename string) error
}{
	"vector":   {snapshot.DefaultVectorName, (*snapshot.Exporter).SaveAsVectorSnapshot},
	"raster":   {snapshot.DefaultRasterName, (*snapshot.Exporter).SaveAsRasterSnapshot},
	"pdf":      {snapshot.DefaultDocumentName, (*snapshot.Exporter).SaveAsDocumentSnapshot},
	"markdown": {snapshot.DefaultMarkdownName, (*snapshot.Exporter).SaveAsMarkdownSnapshot},
}

// newRouter builds the HTTP API. The opener abstracts the browser layer so
// handlers stay testable without Chrome.
func newRouter(open snapshot.Opener, jrnl *journal.Journal, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/export", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL      string `json:"url"`
			Selector string `json:"selector"`
			Format   string `json:"format"`
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.URL == "" {
			writeJSON(w, 400, map[string]string{"error": "url is required"})
			return
		}
		if req.Format == "" {
			req.Format = "vector"
		}
		runner, ok := exportRunners[req.Format]
		if !ok {
			writeJSON(w, 400, map[string]string{"error": "unknown format: " + req.Format})
			return
		}
		if req.Filename == "" {
			req.Filename = runner.defaultName
		}

		host, node, err := open(r.Context(), req.URL, req.Selector)
		if err != nil {
			logger.Error("export: open page", "url", req.URL, "error", err)
			writeError(w, 502, err)
			return
		}

		opts := []snapshot.Option{snapshot.WithLogger(logger)}
		if jrnl != nil {
			opts = append(opts, snapshot.WithJournal(jrnl))
		}
		if err := runner.run(snapshot.New(node, host, opts...), r.Context(), req.Filename); err != nil {
			logger.Error("export: failed", "format", req.Format, "url", req.URL, "error", err)
			writeError(w, 500, err)
			return
		}

		writeJSON(w, 200, map[string]string{
			"status":   "triggered",
			"format":   req.Format,
			"filename": req.Filename,
		})
	})

	r.Get("/api/journal", func(w http.ResponseWriter, r *http.Request) {
		if jrnl == nil {
			writeJSON(w, 404, map[string]string{"error": "journal disabled"})
			return
		}
		limit := queryInt(r, "limit", 50)
		events, err := jrnl.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		if events == nil {
			events = []journal.Event{}
		}
		writeJSON(w, 200, events)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
