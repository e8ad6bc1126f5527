package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/worldcore/internal/world"
)

// loopTimeout bounds how long a request waits for the game loop.
const loopTimeout = 2 * time.Second

// Executor runs fn on the goroutine that owns the map.
// system.CommandQueue implements it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Server exposes read-only probes of the world over HTTP.
type Server struct {
	m      *world.Map
	loop   Executor
	params world.FindPathParams
	log    *zap.Logger

	router *mux.Router
	srv    *http.Server
}

func NewServer(addr string, m *world.Map, loop Executor, params world.FindPathParams, log *zap.Logger) *Server {
	s := &Server{
		m:      m,
		loop:   loop,
		params: params,
		log:    log,
		router: mux.NewRouter(),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router.PathPrefix("/debug").Subrouter()
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/tile/{x:[0-9]+}/{y:[0-9]+}/{z:[0-9]+}", s.handleTile).Methods(http.MethodGet)
	r.HandleFunc("/spectators/{x:[0-9]+}/{y:[0-9]+}/{z:[0-9]+}", s.handleSpectators).Methods(http.MethodGet)
	r.HandleFunc("/sight", s.handleSight).Methods(http.MethodGet)
	r.HandleFunc("/path/{id:[0-9]+}", s.handlePath).Methods(http.MethodGet)
}

// RequireAuth puts the probes behind HTTP basic auth. hash is the bcrypt
// hash of the password.
func (s *Server) RequireAuth(user, hash string) {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="worldcore debug"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until ctx is done, then shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("debug server listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("debug server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("debug server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("debug server: %w", err)
	}
	return nil
}

// onLoop runs fn on the game loop, answering 503 when it is too busy.
func (s *Server) onLoop(w http.ResponseWriter, r *http.Request, fn func()) bool {
	ctx, cancel := context.WithTimeout(r.Context(), loopTimeout)
	defer cancel()
	if err := s.loop.Do(ctx, fn); err != nil {
		s.log.Warn("debug request timed out", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "game loop busy")
		return false
	}
	return true
}

type statsResponse struct {
	Map  world.Stats     `json:"map"`
	Grid world.GridStats `json:"grid"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse
	if !s.onLoop(w, r, func() {
		resp.Map = s.m.Stats()
		resp.Grid = s.m.GridStats()
	}) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type itemJSON struct {
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Count uint16 `json:"count"`
}

type tileResponse struct {
	Pos             world.Position `json:"pos"`
	Ground          *itemJSON      `json:"ground,omitempty"`
	Items           []itemJSON     `json:"items"`
	Creatures       []uint32       `json:"creatures"`
	Zone            uint32         `json:"zone"`
	BlockSolid      bool           `json:"block_solid"`
	BlockProjectile bool           `json:"block_projectile"`
	BlockPath       bool           `json:"block_path"`
}

func toItemJSON(it *world.Item) itemJSON {
	out := itemJSON{ID: it.ID(), Count: it.Count}
	if it.Type != nil {
		out.Name = it.Type.Name
	}
	return out
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	pos, err := varsPosition(mux.Vars(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp *tileResponse
	if !s.onLoop(w, r, func() {
		t := s.m.GetTile(pos)
		if t == nil {
			return
		}
		resp = &tileResponse{
			Pos:             pos,
			Items:           make([]itemJSON, 0, len(t.Items())),
			Creatures:       make([]uint32, 0, len(t.Creatures())),
			Zone:            uint32(t.Zone()),
			BlockSolid:      t.HasProperty(world.PropBlockSolid),
			BlockProjectile: t.BlocksProjectile(),
			BlockPath:       t.HasProperty(world.PropBlockPath),
		}
		if g := t.Ground(); g != nil {
			ground := toItemJSON(g)
			resp.Ground = &ground
		}
		for _, it := range t.Items() {
			resp.Items = append(resp.Items, toItemJSON(it))
		}
		for _, c := range t.Creatures() {
			resp.Creatures = append(resp.Creatures, c.ID())
		}
	}) {
		return
	}
	if resp == nil {
		writeError(w, http.StatusNotFound, "no tile at "+pos.String())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type spectatorsResponse struct {
	Center     world.Position `json:"center"`
	Multifloor bool           `json:"multifloor"`
	Players    bool           `json:"players"`
	IDs        []uint32       `json:"ids"`
}

func (s *Server) handleSpectators(w http.ResponseWriter, r *http.Request) {
	pos, err := varsPosition(mux.Vars(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	multifloor := q.Get("multifloor") == "true" || q.Get("multifloor") == "1"
	players := q.Get("players") == "true" || q.Get("players") == "1"

	resp := spectatorsResponse{Center: pos, Multifloor: multifloor, Players: players}
	if !s.onLoop(w, r, func() {
		specs := world.NewSpectators()
		s.m.GetSpectators(specs, pos, multifloor, players, 0, 0, 0, 0)
		resp.IDs = specs.IDs()
	}) {
		return
	}
	if resp.IDs == nil {
		resp.IDs = []uint32{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sightResponse struct {
	From  world.Position `json:"from"`
	To    world.Position `json:"to"`
	Sight bool           `json:"sight"`
	Throw bool           `json:"throw"`
}

func (s *Server) handleSight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parsePosition(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := parsePosition(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}

	resp := sightResponse{From: from, To: to}
	if !s.onLoop(w, r, func() {
		resp.Sight = s.m.IsSightClear(from, to, true)
		resp.Throw = s.m.CanThrowObjectTo(from, to, world.DefaultThrowOptions())
	}) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type pathResponse struct {
	Creature uint32         `json:"creature"`
	From     world.Position `json:"from"`
	To       world.Position `json:"to"`
	Found    bool           `json:"found"`
	Steps    []string       `json:"steps"`
	Cost     int32          `json:"cost"`
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad creature id")
		return
	}
	to, err := parsePosition(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}

	var resp *pathResponse
	if !s.onLoop(w, r, func() {
		c := s.m.Creature(uint32(id))
		if c == nil {
			return
		}
		dirs, found := s.m.GetPathTo(c, to, s.params)
		resp = &pathResponse{
			Creature: c.ID(),
			From:     c.Position(),
			To:       to,
			Found:    found,
			Steps:    make([]string, 0, len(dirs)),
			Cost:     world.PathCost(dirs),
		}
		for _, d := range dirs {
			resp.Steps = append(resp.Steps, d.String())
		}
	}) {
		return
	}
	if resp == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("creature %d not placed", id))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func varsPosition(vars map[string]string) (world.Position, error) {
	return parsePosition(vars["x"] + "," + vars["y"] + "," + vars["z"])
}

// parsePosition reads "x,y,z".
func parsePosition(s string) (world.Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return world.Position{}, fmt.Errorf("position %q: want x,y,z", s)
	}
	var v [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return world.Position{}, fmt.Errorf("position %q: %w", s, err)
		}
		v[i] = n
	}
	pos := world.Pos(int32(v[0]), int32(v[1]), int32(v[2]))
	if !pos.Valid() {
		return world.Position{}, fmt.Errorf("position %s out of bounds", pos)
	}
	return pos, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
