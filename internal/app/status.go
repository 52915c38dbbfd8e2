package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/multiversego/internal/analysis"
)

// statusPayload is the JSON body served by the /status endpoint.
type statusPayload struct {
	Mode    string `json:"mode"`
	RunNo   int    `json:"run_no"`
	Total   int    `json:"total"`
	Visited int64  `json:"visited"`
	Failed  int64  `json:"failed"`
}

// setProgress publishes the current batch to the status endpoint.
func (a *App) setProgress(orch *analysis.Orchestrator, runNo, total int) {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	a.progress = batchProgress{
		orch:  orch,
		mode:  a.config.Mode,
		runNo: runNo,
		total: total,
	}
}

// progressSnapshot captures the in-flight batch state for the handler.
func (a *App) progressSnapshot() statusPayload {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()

	payload := statusPayload{
		Mode:  a.progress.mode,
		RunNo: a.progress.runNo,
		Total: a.progress.total,
	}
	if a.progress.orch != nil {
		payload.Visited, payload.Failed = a.progress.orch.Progress()
	}
	return payload
}

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// statusHandler serves the progress of the in-flight batch.
func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.progressSnapshot()); err != nil {
		a.logger.Error("Failed to encode status payload.", "error", err)
	}
}

// startStatusServer initializes and runs the status HTTP server.
func (a *App) startStatusServer(port int) {
	a.logger.Debug("Configuring status server.")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/status", a.statusHandler)

	addr := fmt.Sprintf(":%d", port)
	a.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		a.logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/status", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
}

// closeStatusServer shuts the status server down gracefully.
func (a *App) closeStatusServer() {
	if a.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Debug("Shutting down status server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Status server shutdown failed", "error", err)
	}
}
