package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/vehicle_telemetry/internal/telemetry"
	"github.com/relabs-tech/vehicle_telemetry/internal/tracklog"
)

const (
	maxBodyBytes      = 64 << 10
	wsPushInterval    = 100 * time.Millisecond
	defaultTrackLimit = 500
	maxTrackLimit     = 10000
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// webServer holds what the HTTP handlers read and write.
type webServer struct {
	snap   *telemetry.Snapshot
	loader RouteLoader
	track  *tracklog.Recorder
}

// newWebHandler builds the dashboard HTTP API. loader and track may be nil.
// staticDir is served at / when not empty.
func newWebHandler(snap *telemetry.Snapshot, loader RouteLoader, track *tracklog.Recorder, staticDir string) http.Handler {
	s := &webServer{snap: snap, loader: loader, track: track}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/telemetry", s.handleTelemetry)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/route", s.handleRoute)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/track", s.handleTrack)
	mux.HandleFunc("/ws/telemetry", s.handleWS)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (s *webServer) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.snap.State())
}

func (s *webServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, telemetry.FormatStatus(s.snap.State()))
}

func (s *webServer) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.loader == nil {
		http.Error(w, errNoRouteLoader.Error(), http.StatusConflict)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := LoadRouteJSON(s.loader, body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("web: route reloaded")
	w.WriteHeader(http.StatusNoContent)
}

func (s *webServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := ApplyCommandJSON(s.snap, body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.snap.State())
}

func (s *webServer) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.track == nil {
		http.Error(w, "track log disabled", http.StatusNotFound)
		return
	}

	limit := defaultTrackLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxTrackLimit {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	pts, err := s.track.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("web: %v", err)
		http.Error(w, "track query failed", http.StatusInternalServerError)
		return
	}
	if pts == nil {
		pts = []tracklog.Point{}
	}
	writeJSON(w, pts)
}

// handleWS streams State to the client: once on connect, then whenever the
// snapshot version moves.
func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Reads only detect close; the stream is one-way.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("web: websocket read error: %v", err)
				}
				return
			}
		}
	}()

	st := s.snap.State()
	if err := conn.WriteJSON(st); err != nil {
		return
	}
	last := st.Version

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if s.snap.Version() == last {
				continue
			}
			st := s.snap.State()
			if err := conn.WriteJSON(st); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
			last = st.Version
		}
	}
}

// RunWeb starts serving the dashboard API on addr in the background.
// The caller shuts the returned server down.
func RunWeb(addr string, snap *telemetry.Snapshot, loader RouteLoader, track *tracklog.Recorder) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: newWebHandler(snap, loader, track, "web"),
	}
	go func() {
		log.Printf("web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("web: server error: %v", err)
		}
	}()
	return srv
}
