package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"timelane/internal/config"
	"timelane/internal/layout"
	appLog "timelane/internal/log"
	"timelane/internal/model"
	"timelane/internal/render"
	"timelane/internal/source"
	"timelane/internal/store"
	"timelane/internal/utcday"
)

const (
	layoutCacheSize = 64
	layoutCacheTTL  = 5 * time.Minute
	limiterCacheTTL = 5 * time.Minute
	maxBodyBytes    = 1 << 20
)

// ReloadFunc reloads every source into the store and returns the number of
// items now stored.
type ReloadFunc func(ctx context.Context) (int, error)

// Server provides the HTTP API and the rendered timeline.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	reload ReloadFunc
	mux    *http.ServeMux
	now    func() time.Time

	// Computed layouts keyed by store revision, day width and today.
	layouts *expirable.LRU[layoutKey, layout.Layout]

	// Per-client limiters for mutating endpoints.
	limiters *expirable.LRU[string, *rate.Limiter]
}

type layoutKey struct {
	revision uint64
	dayWidth int
	today    utcday.Day
}

// NewServer constructs a new Server. reload may be nil, in which case
// POST /api/refresh reports 503.
func NewServer(cfg *config.Config, st *store.Store, reload ReloadFunc) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		reload:   reload,
		mux:      http.NewServeMux(),
		now:      time.Now,
		layouts:  expirable.NewLRU[layoutKey, layout.Layout](layoutCacheSize, nil, layoutCacheTTL),
		limiters: expirable.NewLRU[string, *rate.Limiter](1000, nil, limiterCacheTTL),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="timelane", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/timeline", s.handleTimeline)
	s.mux.HandleFunc("GET /api/items", s.handleListItems)
	s.mux.Handle("PUT /api/items/{id}", s.rateLimited(http.HandlerFunc(s.handleUpdateItem)))
	s.mux.Handle("POST /api/refresh", s.rateLimited(http.HandlerFunc(s.handleRefresh)))
	s.mux.HandleFunc("GET /timeline.svg", s.handleSVG)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// rateLimited applies a per-client token bucket of cfg.RateLimitPerMin
// requests per minute.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	perMin := max(s.cfg.RateLimitPerMin, 1)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		lim, ok := s.limiters.Get(key)
		if !ok {
			lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin)
			s.limiters.Add(key, lim)
		}
		if !lim.Allow() {
			appLog.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// currentLayout returns the layout for the current store revision, computing
// it on a cache miss. Failed computations are not cached.
func (s *Server) currentLayout(dayWidth int) (layout.Layout, error) {
	now := s.now()
	events, revision := s.store.Snapshot()
	key := layoutKey{
		revision: revision,
		dayWidth: dayWidth,
		today:    utcday.FromTime(now),
	}
	if l, ok := s.layouts.Get(key); ok {
		return l, nil
	}

	l, err := layout.Compute(events, layout.Options{
		DayWidth: dayWidth,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		return layout.Layout{}, err
	}
	s.layouts.Add(key, l)
	appLog.Debug("layout computed", "revision", key.revision, "day_width", dayWidth, "lanes", l.LaneCount())
	return l, nil
}

// layoutStatus maps a layout error to its HTTP status: an empty item set
// is 422, anything the data caused is 400.
func layoutStatus(err error) int {
	switch {
	case errors.Is(err, layout.ErrNoEvents):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidInterval):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) dayWidth(r *http.Request) (int, error) {
	v := r.URL.Query().Get("day_width")
	if v == "" {
		return s.cfg.DayWidth, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 1000 {
		return 0, errors.New("day_width must be an integer between 1 and 1000")
	}
	return n, nil
}

// handleTimeline returns the computed layout as JSON.
//
// GET /api/timeline?day_width=24
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	dw, err := s.dayWidth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := s.currentLayout(dw)
	if err != nil {
		status := layoutStatus(err)
		if status != http.StatusUnprocessableEntity {
			appLog.Error("api timeline: layout failed", err)
		}
		writeError(w, status, errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, render.NewDocument(l))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	dw, err := s.dayWidth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	l, err := s.currentLayout(dw)
	if err != nil {
		http.Error(w, errorMessage(err), layoutStatus(err))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	if err := render.SVG(w, l, s.cfg.Style); err != nil {
		appLog.Error("failed to write SVG response", err)
	}
}

type itemsResponse struct {
	Items    []model.Item `json:"items"`
	Revision uint64       `json:"revision"`
}

func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	events, revision := s.store.Snapshot()
	items := make([]model.Item, len(events))
	for i, ev := range events {
		items[i] = model.ItemFromEvent(ev)
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: items, Revision: revision})
}

// handleUpdateItem saves an edited item. The body carries name, start and
// end; the id comes from the path.
//
// PUT /api/items/{id}
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var it model.Item
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if it.ID != "" && it.ID != id {
		writeError(w, http.StatusBadRequest, "id in body does not match path")
		return
	}
	it.ID = id

	ev, err := it.Event()
	if err != nil {
		writeError(w, http.StatusBadRequest, errorMessage(err))
		return
	}
	updated, err := s.store.Update(ev)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, errorMessage(err))
		return
	}

	appLog.Info("item updated", "id", id, "start", it.Start, "end", it.End)
	writeJSON(w, http.StatusOK, model.ItemFromEvent(updated))
}

type refreshResponse struct {
	Items    int    `json:"items"`
	Revision uint64 `json:"revision"`
	Warning  string `json:"warning,omitempty"`
}

// handleRefresh reloads all sources now. Partial failures still answer 200
// with a warning; a reload that loaded nothing answers 502.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		writeError(w, http.StatusServiceUnavailable, "reload not configured")
		return
	}
	n, err := s.reload(r.Context())
	resp := refreshResponse{Items: n, Revision: s.store.Revision()}
	if err != nil {
		if errors.Is(err, source.ErrNothingLoaded) {
			appLog.Error("api refresh failed", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePreview serves the last captured PNG preview from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.PreviewPath())
}

// errorMessage keeps the sentinel text for the empty case so clients can
// match on it.
func errorMessage(err error) string {
	if errors.Is(err, layout.ErrNoEvents) {
		return layout.ErrNoEvents.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
