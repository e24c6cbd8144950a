// Package hooks exposes the small HTTP surface other tools use to poke
// the reminder agent: a full resync trigger and per-entity upsert/delete
// signals mirroring the backend's CRUD callbacks.
//
// Every accepted request answers 202/204 immediately; reminder
// scheduling is best-effort and its failures never surface as HTTP
// errors.
package hooks

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"findemybot/internal/api"
	"findemybot/internal/remind"
	logx "findemybot/pkg/logx"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Config struct {
	Enabled bool
	Addr    string
	Token   string // optional bearer token; empty disables auth
}

// Scheduler is the slice of the reminder facade the hooks need.
type Scheduler interface {
	ScheduleClass(j api.Jadwal)
	ScheduleTask(t api.Tugas)
	ScheduleEvent(ev api.Event)
	CancelOne(kind remind.Kind, id int)
}

type Server struct {
	cfg    Config
	log    logx.Logger
	sched  Scheduler
	resync func()

	srv *http.Server
}

// New builds the hooks server. resync is invoked (in its own goroutine)
// on POST /v1/resync.
func New(cfg Config, sched Scheduler, resync func(), log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8484"
	}
	return &Server{cfg: cfg, log: log, sched: sched, resync: resync}
}

func (s *Server) Enabled() bool { return s.cfg.Enabled }

// Handler builds the router. Split from Start so tests can drive it
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if s.cfg.Token != "" {
		r.Use(s.auth)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/v1/resync", s.handleResync)
	r.Post("/v1/reminders/{kind}/{id}", s.handleUpsert)
	r.Delete("/v1/reminders/{kind}/{id}", s.handleDelete)
	return r
}

func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.log.Info("hooks listening", logx.String("addr", s.cfg.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("hooks server failed", logx.Err(err))
		}
	}()
	_ = ctx
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if s.resync != nil {
		go s.resync()
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"request_id": requestID(r),
	})
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := entityParams(w, r)
	if !ok {
		return
	}

	dec := json.NewDecoder(r.Body)
	switch kind {
	case remind.KindClass:
		var j api.Jadwal
		if err := dec.Decode(&j); err != nil {
			http.Error(w, "malformed body: "+err.Error(), http.StatusBadRequest)
			return
		}
		j.ID = id
		s.sched.ScheduleClass(j)
	case remind.KindTask:
		var t api.Tugas
		if err := dec.Decode(&t); err != nil {
			http.Error(w, "malformed body: "+err.Error(), http.StatusBadRequest)
			return
		}
		t.ID = id
		s.sched.ScheduleTask(t)
	case remind.KindEvent:
		var ev api.Event
		if err := dec.Decode(&ev); err != nil {
			http.Error(w, "malformed body: "+err.Error(), http.StatusBadRequest)
			return
		}
		ev.ID = id
		s.sched.ScheduleEvent(ev)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"request_id": requestID(r),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := entityParams(w, r)
	if !ok {
		return
	}
	s.sched.CancelOne(kind, id)
	w.WriteHeader(http.StatusNoContent)
}

func entityParams(w http.ResponseWriter, r *http.Request) (remind.Kind, int, bool) {
	kind, ok := remind.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		http.Error(w, "unknown kind", http.StatusNotFound)
		return 0, 0, false
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, 0, false
	}
	return kind, id, true
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
