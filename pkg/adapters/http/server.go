package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/internal/runtime"
	"github.com/aretw0/rapport/internal/validator"
	"github.com/aretw0/rapport/pkg/adapters/file"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies, graph documents included.
const maxBodyBytes = 1 << 20

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	SessionID string             `json:"session_id,omitempty"`
	Persona   domain.Persona     `json:"persona"`
	Scenario  domain.Scenario    `json:"scenario"`
	Profile   domain.UserProfile `json:"profile"`
	// Hybrid seeds persona and story beats from the server graph.
	Hybrid bool `json:"hybrid,omitempty"`
}

// Builder creates the orchestrator of a new session. hooks must be installed
// on it for /events to stream anything.
type Builder func(ctx context.Context, sessionID string, req CreateSessionRequest, hooks domain.LifecycleHooks) (*runtime.Orchestrator, error)

// Server serves the conversation API.
type Server struct {
	sessions *session.Manager
	build    Builder
	streams  *StreamManager
	gatherer prometheus.Gatherer
	newID    func() string
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithGatherer selects the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithIDGenerator overrides how session ids are minted when the client
// does not provide one.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// NewServer creates a server over sessions. build is called for every
// POST /sessions.
func NewServer(sessions *session.Manager, build Builder, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		build:    build,
		streams:  NewStreamManager(),
		gatherer: prometheus.DefaultGatherer,
		newID:    uuid.NewString,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams.logger = s.logger
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Post("/graphs/validate", s.validateGraph)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Get("/events", s.subscribeEvents)
			r.Post("/start", s.start)
			r.Post("/input", s.input)
			r.Post("/select", s.selectSuggestion)
			r.Post("/retry", s.retry)
			r.Post("/end", s.end)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if req.SessionID == "" {
		req.SessionID = s.newID()
	}

	orch, err := s.sessions.Create(r.Context(), req.SessionID, func(ctx context.Context, id string) (*runtime.Orchestrator, error) {
		return s.build(ctx, id, req, s.streams.Hooks(id))
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orch.Snapshot())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if orch, err := s.sessions.Get(id); err == nil {
		writeJSON(w, http.StatusOK, orch.Snapshot())
		return
	}
	res, err := s.sessions.Result(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	s.drive(w, r, func(ctx context.Context, o *runtime.Orchestrator) error {
		return o.Start(ctx)
	})
}

type inputRequest struct {
	Text string `json:"text"`
}

func (s *Server) input(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	s.drive(w, r, func(ctx context.Context, o *runtime.Orchestrator) error {
		return o.SubmitUserInput(ctx, req.Text)
	})
}

type selectRequest struct {
	ID string `json:"id"`
}

func (s *Server) selectSuggestion(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	s.drive(w, r, func(ctx context.Context, o *runtime.Orchestrator) error {
		return o.SelectSuggestedResponse(ctx, req.ID)
	})
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	s.drive(w, r, func(ctx context.Context, o *runtime.Orchestrator) error {
		return o.Retry(ctx)
	})
}

func (s *Server) end(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.sessions.End(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.streams.Close(id)
	writeJSON(w, http.StatusOK, res)
}

// drive runs one orchestrator operation and answers with the snapshot taken
// after it. A closing signal from the model completes the dialogue; the
// session then leaves memory and the snapshot reports completed.
func (s *Server) drive(w http.ResponseWriter, r *http.Request, op func(context.Context, *runtime.Orchestrator) error) {
	id := chi.URLParam(r, "id")
	orch, err := s.sessions.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := op(r.Context(), orch); err != nil {
		s.fail(w, r, err)
		return
	}
	snap := orch.Snapshot()
	if snap.Activity == domain.ActivityCompleted {
		s.sessions.Prune(0)
		s.streams.Close(id)
	}
	writeJSON(w, http.StatusOK, snap)
}

// ValidationResponse is the body returned by POST /graphs/validate.
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Root     string   `json:"root,omitempty"`
	Steps    int      `json:"steps"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) validateGraph(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	doc, err := file.Decode(data)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Errors: []string{err.Error()}})
		return
	}

	resp := ValidationResponse{Root: doc.RootID(), Steps: len(doc.Steps)}
	g, err := compiler.Compile(doc.StepList(), doc.RootID())
	if err != nil {
		var errs *domain.CompileErrors
		if errors.As(err, &errs) {
			for _, e := range errs.Errors {
				resp.Errors = append(resp.Errors, e.Error())
			}
		} else {
			resp.Errors = []string{err.Error()}
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	for _, warn := range validator.Lint(g) {
		resp.Warnings = append(resp.Warnings, warn.String())
	}
	resp.Valid = true
	writeJSON(w, http.StatusOK, resp)
}

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter string `json:"retry_after,omitempty"`
}

// fail maps domain errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := errorResponse{Error: err.Error()}

	var rl *domain.RateLimitError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, domain.ErrResultNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionExists),
		errors.Is(err, domain.ErrOperationInProgress),
		errors.Is(err, domain.ErrDialogueEnded):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidOperation):
		status = http.StatusBadRequest
	case errors.As(err, &rl):
		status = http.StatusTooManyRequests
		secs := int(rl.RetryAfter.Seconds() + 0.999)
		w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		body.RetryAfter = rl.RetryAfter.String()
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGenerationFailed):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
