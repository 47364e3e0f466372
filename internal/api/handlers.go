package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"canvas/internal/events"
	"canvas/internal/metrics"
	"canvas/internal/models"
	"canvas/internal/session"
	"canvas/internal/storage"
	"canvas/internal/utils"
)

const (
	messagesPerSecond = 100
	messageBurst      = 200
	maxRateViolations = 1000
)

// Handlers is the transport adapter: it maps inbound named events onto the
// session manager and broadcast router and owns nothing else.
type Handlers struct {
	log       *zap.Logger
	registry  *session.Registry
	manager   *session.Manager
	router    *session.Router
	store     storage.Store
	publisher *events.Publisher
	jwtSecret []byte
}

func NewHandlers(log *zap.Logger, registry *session.Registry, manager *session.Manager, router *session.Router, store storage.Store, publisher *events.Publisher, jwtSecret []byte) *Handlers {
	return &Handlers{
		log:       log,
		registry:  registry,
		manager:   manager,
		router:    router,
		store:     store,
		publisher: publisher,
		jwtSecret: jwtSecret,
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// Stats reports resident rooms and connected participants.
func (h *Handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]int{
		"rooms":        h.registry.Len(),
		"participants": h.registry.ParticipantCount(),
	})
}

// GetCanvas returns the persisted document for a room. It reads the durable
// store directly and does not touch live session state.
func (h *Handlers) GetCanvas(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	doc, err := h.store.FindByID(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "canvas not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("canvas fetch failed", zap.String("roomId", roomID), zap.Error(err))
		http.Error(w, "failed to fetch canvas", http.StatusInternalServerError)
		return
	}
	writeJSON(w, doc)
}

/*** Canvas WebSocket: room join + element/cursor fan-out ***/

// CanvasWS runs one collaboration connection. The handshake requires a room
// id (path) and participant id (query); both are checked before any room
// logic runs.
func (h *Handlers) CanvasWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	participantID := r.URL.Query().Get("participant")
	if roomID == "" || participantID == "" {
		http.Error(w, "roomId and participant are required", http.StatusBadRequest)
		return
	}
	if len(h.jwtSecret) > 0 && !h.admitToken(r, roomID, participantID) {
		http.Error(w, "invalid room token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connKey := uuid.New().String()
	client := session.NewClient(conn)

	elements, others, err := h.manager.Join(r.Context(), roomID, participantID, connKey, client)
	if err != nil {
		_ = conn.WriteJSON(models.Frame{Type: models.EventJoinError, Data: "room load failed"})
		return
	}
	defer func() {
		h.manager.Leave(roomID, connKey)
		h.publisher.Publish(context.Background(), events.Event{
			Type: events.TypeParticipantLeft, RoomID: roomID, ParticipantID: participantID,
		})
		h.updateSessionGauges()
	}()

	h.publisher.Publish(r.Context(), events.Event{
		Type: events.TypeParticipantJoined, RoomID: roomID, ParticipantID: participantID,
	})
	h.updateSessionGauges()

	client.Send(models.Frame{Type: models.EventRoomState, Data: elements})
	client.Send(models.Frame{Type: models.EventParticipantsList, Data: others})

	limiter := rate.NewLimiter(rate.Limit(messagesPerSecond), messageBurst)
	violations := 0

	// Event loop. One goroutine reads per connection, so events from a
	// single connection are applied in the order they arrived.
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if !limiter.Allow() {
			violations++
			if violations%100 == 1 {
				h.log.Warn("rate limit exceeded",
					zap.String("roomId", roomID),
					zap.String("participantId", participantID),
					zap.Int("violations", violations))
			}
			if violations > maxRateViolations {
				h.log.Warn("disconnecting connection for excessive rate limit violations",
					zap.String("roomId", roomID),
					zap.String("participantId", participantID))
				return
			}
			continue
		}

		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg, &frame); err != nil {
			h.log.Warn("malformed frame", zap.String("roomId", roomID), zap.Error(err))
			continue
		}

		switch frame.Type {
		case models.EventElementUpdate:
			var elements []models.Element
			if err := json.Unmarshal(frame.Data, &elements); err != nil {
				h.log.Warn("malformed element update", zap.String("roomId", roomID), zap.Error(err))
				continue
			}
			h.router.ApplyElementUpdate(r.Context(), roomID, connKey, elements)
			metrics.ElementUpdates.Inc()

		case models.EventCursorUpdate:
			var pos models.CursorPosition
			if err := json.Unmarshal(frame.Data, &pos); err != nil {
				continue
			}
			h.router.ApplyCursorUpdate(roomID, connKey, pos)
			metrics.CursorUpdates.Inc()

		default:
			// Unknown event names are dropped without surfacing an
			// error to the sender.
			h.log.Warn("unknown event", zap.String("roomId", roomID), zap.String("type", frame.Type))
		}
	}
}

// admitToken checks the optional room access token against the handshake
// identity. The token comes from the query string or the Authorization
// header.
func (h *Handlers) admitToken(r *http.Request, roomID, participantID string) bool {
	token := r.URL.Query().Get("token")
	if token == "" {
		if v, err := utils.ExtractTokenFromHeader(r.Header.Get("Authorization")); err == nil {
			token = v
		}
	}
	claims, err := utils.ValidateRoomToken(token, h.jwtSecret)
	if err != nil {
		return false
	}
	return claims.RoomID == roomID && claims.ParticipantID == participantID
}

func (h *Handlers) updateSessionGauges() {
	metrics.ActiveRooms.Set(float64(h.registry.Len()))
	metrics.ActiveParticipants.Set(float64(h.registry.ParticipantCount()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
