package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net"
	"net/http"
	"time"

	"VIXBar/internal/calculator"
	"VIXBar/internal/display"
	"VIXBar/internal/loginitem"
	"VIXBar/internal/model"
	"VIXBar/internal/state"

	"github.com/gorilla/websocket"
)

// Refresher triggers a background fetch.
type Refresher interface {
	Refresh()
}

// Server exposes the observable state over HTTP and a WebSocket push stream.
type Server struct {
	addr   string
	symbol string
	store  *state.Store
	poller Refresher
	login  loginitem.Manager
	quit   func()

	srv      *http.Server
	upgrader websocket.Upgrader
}

// NewServer creates a Server. quit may be nil to disable /api/quit.
func NewServer(addr, symbol string, store *state.Store, poller Refresher, login loginitem.Manager, quit func()) *Server {
	return &Server{
		addr:   addr,
		symbol: symbol,
		store:  store,
		poller: poller,
		login:  login,
		quit:   quit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vix", s.handleLatest)
	mux.HandleFunc("GET /api/vix/summary", s.handleSummary)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/quit", s.handleQuit)
	mux.HandleFunc("GET /api/login-item", s.handleLoginStatus)
	mux.HandleFunc("PUT /api/login-item", s.handleLoginSet)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[INFO] http server listening on %s", ln.Addr())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusResponse struct {
	Symbol      string     `json:"symbol"`
	Value       *float64   `json:"value"`
	Display     string     `json:"display"`
	LastUpdated *time.Time `json:"last_updated"`
	History     []float64  `json:"history,omitempty"`
}

func (s *Server) status(st model.State, history []float64) statusResponse {
	return statusResponse{
		Symbol:      s.symbol,
		Value:       st.LatestValue,
		Display:     display.FormatValue(st.LatestValue),
		LastUpdated: st.LastUpdated,
		History:     history,
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	history := snap.History
	if history == nil {
		history = []float64{}
	}
	writeJSON(w, http.StatusOK, s.status(snap.State, history))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := calculator.Summarize(s.store.History(), calculator.DefaultSMAPeriod)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no history yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     s.symbol,
		"count":      summary.Count,
		"latest":     summary.Latest,
		"min":        summary.Min,
		"max":        summary.Max,
		"mean":       summary.Mean,
		"stddev":     summary.StdDev,
		"sma":        summary.SMA,
		"sma_period": summary.SMAPeriod,
		"position":   summary.Position,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.poller.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	if s.quit == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "quit disabled"})
		return
	}
	// Browsers only send a JSON content type cross-origin after a CORS preflight.
	if !isJSON(r) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "content type must be application/json"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	go s.quit()
}

type loginResponse struct {
	Enabled bool   `json:"enabled"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleLoginStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, loginResponse{Enabled: s.login.IsEnabled()})
}

func (s *Server) handleLoginSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `body must be {"enabled": true|false}`})
		return
	}
	actual, err := loginitem.Set(s.login, *req.Enabled)
	if err != nil {
		writeJSON(w, http.StatusConflict, loginResponse{Enabled: actual, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Enabled: actual})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] write response: %v", err)
	}
}
