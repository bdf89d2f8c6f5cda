package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/campusperks/realtime-service/internal/auth"
	"github.com/campusperks/realtime-service/internal/config"
	"github.com/campusperks/realtime-service/internal/events"
	"github.com/campusperks/realtime-service/internal/hub"
	"github.com/campusperks/realtime-service/internal/model"
	"github.com/campusperks/realtime-service/internal/presence"
	"github.com/campusperks/realtime-service/internal/service"
)

const presenceTTL = 24 * time.Hour

type joinPayload struct {
	UserID string `json:"userId"`
}

type markReadPayload struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
}

type broadcastPayload struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	StudentID string `json:"studentId,omitempty"`
}

// Handler upgrades connections, authenticates them and speaks the envelope
// protocol: joins place the connection into its rooms, everything else is a
// thin bridge to the notification service.
type Handler struct {
	hub      *hub.Hub
	svc      *service.NotificationService
	presence *presence.Store
	cfg      *config.Config
	logger   *zap.SugaredLogger
}

func NewHandler(h *hub.Hub, svc *service.NotificationService, pres *presence.Store, cfg *config.Config, logger *zap.SugaredLogger) *Handler {
	return &Handler{hub: h, svc: svc, presence: pres, cfg: cfg, logger: logger}
}

// Handle returns the fiber/websocket connection handler for GET /v1/ws?token=<jwt>.
// A bad token closes the socket before it reaches any room.
func (h *Handler) Handle() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		claims, err := auth.ParseAndValidateToken(h.cfg.JWT.Secret, token)
		if err != nil {
			h.logger.Debugw("handshake rejected", "err", err)
			_ = conn.Close()
			return
		}

		client := hub.NewClient(uuid.NewString(), claims.UserID, claims.Role, 256)
		h.hub.Register(client)
		if err := h.presence.AddConnection(context.Background(), claims.UserID, client.ID, claims.Role, presenceTTL); err != nil {
			h.logger.Warnw("presence add failed", "user", claims.UserID, "err", err)
		}

		h.sendEvent(client, events.EvtConnectionStatus, events.ConnectionStatusPayload{
			Connected: true,
			Message:   "connected, awaiting join",
		})

		go h.writePump(conn, client)
		h.readPump(conn, client, claims)

		h.hub.Unregister(client)
		if err := h.presence.RemoveConnection(context.Background(), claims.UserID, client.ID); err != nil {
			h.logger.Warnw("presence remove failed", "user", claims.UserID, "err", err)
		}
	}
}

func (h *Handler) readPump(conn *websocket.Conn, client *hub.Client, claims *auth.Claims) {
	defer func() { _ = conn.Close() }()

	limiter := rate.NewLimiter(rate.Limit(h.cfg.WS.InboundRatePerSec), h.cfg.WS.InboundRatePerSec)
	conn.SetReadLimit(h.cfg.WS.MaxMessageSizeBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadDeadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			continue
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		h.dispatch(client, claims, env)
	}
}

func (h *Handler) dispatch(client *hub.Client, claims *auth.Claims, env events.Envelope) {
	switch env.Event {
	case events.EvtStudentJoin, events.EvtVendorJoin, events.EvtAdminJoin:
		h.handleJoin(client, claims, env)
	case events.EvtMarkRead:
		h.handleMarkRead(client, claims, env)
	case events.EvtRequestUnreadCount:
		h.handleUnreadCount(client, claims)
	case events.EvtBroadcastRequest:
		h.handleBroadcast(client, claims, env)
	default:
		// unknown: ignore
	}
}

func (h *Handler) handleJoin(client *hub.Client, claims *auth.Claims, env events.Envelope) {
	var p joinPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.UserID == "" {
		h.sendError(client, "join requires a userId")
		return
	}
	role := roleForJoinEvent(env.Event)
	if p.UserID != claims.UserID || role != claims.Role {
		h.logger.Warnw("join refused, claim mismatch",
			"claimed", p.UserID, "authenticated", claims.UserID, "event", env.Event)
		h.sendError(client, "join refused")
		return
	}

	rooms := roomsFor(claims.UserID, claims.Role)
	h.hub.Join(client, rooms...)
	h.sendEvent(client, events.EvtConnectionStatus, events.ConnectionStatusPayload{
		Connected: true,
		Message:   "joined",
	})
	h.logger.Infow("client joined", "user", claims.UserID, "role", claims.Role, "rooms", rooms)
}

func (h *Handler) handleMarkRead(client *hub.Client, claims *auth.Claims, env events.Envelope) {
	var p markReadPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.NotificationID == "" {
		h.sendError(client, "mark-read requires a notificationId")
		return
	}
	// identity comes from the token, never the payload
	if err := h.svc.MarkRead(context.Background(), p.NotificationID, claims.UserID, claims.Role); err != nil {
		h.sendError(client, "mark-read failed: "+err.Error())
	}
}

func (h *Handler) handleUnreadCount(client *hub.Client, claims *auth.Claims) {
	count, err := h.svc.UnreadCount(context.Background(), claims.UserID, claims.Role)
	if err != nil {
		h.sendError(client, "unread count unavailable")
		return
	}
	h.sendEvent(client, events.EvtUnreadCount, events.UnreadCountPayload{UnreadCount: count})
}

// handleBroadcast lets admins and vendors fan out an ad-hoc notification.
// It goes through the service so the record is persisted before delivery.
func (h *Handler) handleBroadcast(client *hub.Client, claims *auth.Claims, env events.Envelope) {
	if claims.Role == auth.RoleStudent {
		h.sendError(client, "broadcast not permitted")
		return
	}
	var p broadcastPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Title == "" {
		h.sendError(client, "broadcast requires a title")
		return
	}
	n := &model.Notification{
		Title:          p.Title,
		Message:        p.Message,
		Type:           p.Type,
		IsGlobal:       p.StudentID == "",
		StudentID:      p.StudentID,
		CreatedBy:      claims.UserID,
		CreatedByModel: claims.Role,
	}
	if err := h.svc.Create(context.Background(), n); err != nil {
		if errors.Is(err, model.ErrInvalidType) || errors.Is(err, model.ErrAmbiguousAddressing) {
			h.sendError(client, "broadcast rejected: "+err.Error())
			return
		}
		h.sendError(client, "broadcast failed")
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sendEvent(client *hub.Client, event string, payload any) {
	msg, err := events.Marshal(event, payload)
	if err != nil {
		h.logger.Errorw("marshal outbound event", "event", event, "err", err)
		return
	}
	h.hub.SendTo(client, msg)
}

func (h *Handler) sendError(client *hub.Client, message string) {
	h.sendEvent(client, events.EvtErrorBroadcast, events.ErrorPayload{Message: message})
}

func roleForJoinEvent(event string) string {
	switch event {
	case events.EvtStudentJoin:
		return auth.RoleStudent
	case events.EvtVendorJoin:
		return auth.RoleVendor
	default:
		return auth.RoleAdmin
	}
}

// roomsFor derives room membership from authenticated identity. Students
// join their personal room plus the broadcast room; vendors and admins get
// their per-id notification room.
func roomsFor(userID, role string) []string {
	switch role {
	case auth.RoleStudent:
		return []string{events.RoomStudent(userID), events.RoomAllStudents}
	case auth.RoleVendor:
		return []string{events.RoomVendor(userID)}
	default:
		return []string{events.RoomAdmin(userID)}
	}
}
