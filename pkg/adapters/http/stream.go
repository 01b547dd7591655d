package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// streamMessage is one server-sent event.
type streamMessage struct {
	event string
	data  []byte
}

// StreamManager fans orchestrator events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan streamMessage]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan streamMessage]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a listener for sessionID. The returned func
// unsubscribes; it is safe to call after Close.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan streamMessage, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan streamMessage, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan streamMessage]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		subs, ok := sm.subscribers[sessionID]
		if !ok {
			return
		}
		if _, live := subs[ch]; !live {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(sm.subscribers, sessionID)
		}
	}
}

// Broadcast sends an event to every subscriber of sessionID. Slow clients
// lose messages instead of blocking the conversation.
func (sm *StreamManager) Broadcast(sessionID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Warn("failed to encode stream event", "session_id", sessionID, "err", err)
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- streamMessage{event: event, data: data}:
		default:
			sm.logger.Warn("SSE client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Close ends every stream of sessionID.
func (sm *StreamManager) Close(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for ch := range sm.subscribers[sessionID] {
		close(ch)
	}
	delete(sm.subscribers, sessionID)
}

// Hooks returns lifecycle hooks that broadcast to the subscribers of sessionID.
func (sm *StreamManager) Hooks(sessionID string) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, ev *domain.TurnEvent) {
			sm.Broadcast(sessionID, string(ev.Type), ev)
		},
		OnPhase: func(_ context.Context, ev *domain.PhaseEvent) {
			sm.Broadcast(sessionID, string(ev.Type), ev)
		},
		OnActivity: func(_ context.Context, ev *domain.ActivityEvent) {
			sm.Broadcast(sessionID, string(ev.Type), ev)
		},
		OnComplete: func(_ context.Context, res *domain.Result) {
			sm.Broadcast(sessionID, string(domain.EventCompleted), res)
		},
	}
}

// subscribeEvents handles GET /sessions/{id}/events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(id); err != nil {
		s.fail(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.logger.Info("SSE client connected", "session_id", id)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
			flusher.Flush()
		}
	}
}
