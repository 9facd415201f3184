// Package api exposes the weighing server over HTTP: live state (polling and
// SSE), acquisition control, the weigh-record ledger, the product catalog,
// and the reading audit trail.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/maxibertaina03/balanza-industrial/internal/db"
	"github.com/maxibertaina03/balanza-industrial/internal/ledger"
	"github.com/maxibertaina03/balanza-industrial/internal/livestate"
	"github.com/maxibertaina03/balanza-industrial/internal/monitoring"
	"github.com/maxibertaina03/balanza-industrial/internal/scale"
	"github.com/maxibertaina03/balanza-industrial/internal/store"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// PasswordHeader carries the server-role credential on mutating requests.
const PasswordHeader = "X-Balanza-Password"

// Server wires the HTTP surface to the weighing core. Viewers can read
// everything; mutations require the server-role credential.
type Server struct {
	baseCtx context.Context
	state   *livestate.Store
	ledger  *ledger.Ledger
	loop    *scale.Loop
	history *db.DB // nil when the audit trail is disabled

	fs        store.FileSystem
	credsPath string

	credMu sync.Mutex
	creds  store.Credentials
}

// NewServer builds the API server. baseCtx bounds acquisitions started over
// HTTP so they outlive the request but not the process. history may be nil.
func NewServer(baseCtx context.Context, state *livestate.Store, ldg *ledger.Ledger, loop *scale.Loop, history *db.DB, fs store.FileSystem, credsPath string) *Server {
	return &Server{
		baseCtx:   baseCtx,
		state:     state,
		ledger:    ldg,
		loop:      loop,
		history:   history,
		fs:        fs,
		credsPath: credsPath,
		creds:     store.LoadCredentials(fs, credsPath),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.showState)
	mux.HandleFunc("GET /api/state/stream", s.streamState)
	mux.HandleFunc("POST /api/acquire/start", s.requireAuth(s.startAcquisition))
	mux.HandleFunc("POST /api/acquire/stop", s.requireAuth(s.stopAcquisition))

	mux.HandleFunc("GET /api/catalog", s.showCatalog)

	mux.HandleFunc("GET /api/records", s.listRecords)
	mux.HandleFunc("POST /api/records", s.requireAuth(s.addRecord))
	mux.HandleFunc("PUT /api/records/{index}", s.requireAuth(s.replaceRecord))
	mux.HandleFunc("DELETE /api/records/{index}", s.requireAuth(s.removeRecord))
	mux.HandleFunc("POST /api/records/archive", s.requireAuth(s.archiveRecords))

	mux.HandleFunc("GET /api/expeditions", s.listExpeditions)
	mux.HandleFunc("DELETE /api/expeditions/{exp}", s.requireAuth(s.removeExpedition))
	mux.HandleFunc("PUT /api/expeditions/{exp}/records/{index}", s.requireAuth(s.replaceExpeditionRecord))
	mux.HandleFunc("DELETE /api/expeditions/{exp}/records/{index}", s.requireAuth(s.removeExpeditionRecord))

	mux.HandleFunc("GET /api/readings", s.listReadings)
	mux.HandleFunc("GET /api/readings/stats", s.showReadingStats)
	mux.HandleFunc("GET /api/charts/weight", s.weightChart)

	mux.HandleFunc("POST /api/password", s.requireAuth(s.changePassword))

	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to write response: %v", err)
	}
}

func (s *Server) password() string {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	return s.creds.Password
}

// requireAuth gates mutating routes behind the server-role credential.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PasswordHeader) != s.password() {
			s.writeJSONError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		next(w, r)
	}
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// streamState sends every published state as a Server-Sent Event until the
// client goes away.
func (s *Server) streamState(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSONError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.state.Subscribe()
	defer s.state.Unsubscribe(id)

	// The current snapshot opens the stream so a new viewer renders
	// immediately instead of waiting for the next publish.
	if err := writeEvent(w, s.state.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case state, ok := <-c:
			if !ok {
				return
			}
			if err := writeEvent(w, state); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, state livestate.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

func (s *Server) startAcquisition(w http.ResponseWriter, r *http.Request) {
	if err := s.loop.Start(s.baseCtx); err != nil {
		if errors.Is(err, scale.ErrAlreadyAcquiring) {
			s.writeJSONError(w, http.StatusConflict, "Acquisition already running")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start acquisition: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) stopAcquisition(w http.ResponseWriter, r *http.Request) {
	s.loop.Stop()
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Password == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Password must not be empty")
		return
	}

	s.credMu.Lock()
	defer s.credMu.Unlock()
	creds := store.Credentials{Password: body.Password}
	if err := store.SaveCredentials(s.fs, s.credsPath, creds); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save credentials: %v", err))
		return
	}
	s.creds = creds
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
