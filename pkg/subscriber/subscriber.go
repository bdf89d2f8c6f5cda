// Package subscriber maintains one realtime connection to the notification
// service: it joins the caller's rooms, mirrors the notification feed and
// unread counter locally, and reconnects with bounded exponential backoff.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/events"
)

var ErrNotConnected = errors.New("subscriber is not connected")

// Notification is the client-side view of a pushed record.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type Config struct {
	URL    string // ws://host/v1/ws
	Token  string
	UserID string
	Role   string // student, vendor or admin

	// Reconnect policy: base delay doubling per attempt, capped, at most
	// MaxAttempts tries before giving up.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxAttempts int

	OnNotification func(Notification)
	OnError        func(error)
	Logger         *zap.SugaredLogger
}

type Subscriber struct {
	cfg Config

	mu            sync.Mutex
	conn          *websocket.Conn
	connected     bool
	notifications []Notification
	unread        int64

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config) *Subscriber {
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 8 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Subscriber{cfg: cfg}
}

// Connect dials, joins the caller's rooms and requests an unread-count
// snapshot, then starts the read loop. It returns once the connection is
// established; later drops are handled by the reconnect policy.
func (s *Subscriber) Connect(ctx context.Context) error {
	if err := s.dial(ctx); err != nil {
		return err
	}
	if err := s.join(); err != nil {
		s.teardownConn()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.readLoop(ctx)
	return nil
}

// Close tears the connection down. No goroutine or timer outlives it.
func (s *Subscriber) Close() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.teardownConn()
	if done != nil {
		<-done
	}
}

func (s *Subscriber) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Notifications returns the local feed, newest first.
func (s *Subscriber) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *Subscriber) UnreadCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// MarkAsRead optimistically flips local state and asks the server to
// persist. The server's notificationRead echo reconciles other sessions.
func (s *Subscriber) MarkAsRead(id string) error {
	s.applyRead(id)
	return s.send(events.EvtMarkRead, map[string]string{
		"notificationId": id,
		"userId":         s.cfg.UserID,
	})
}

// RequestUnreadCount re-synchronizes the counter, e.g. after a reconnect.
func (s *Subscriber) RequestUnreadCount() error {
	return s.send(events.EvtRequestUnreadCount, map[string]string{"userId": s.cfg.UserID})
}

// BroadcastNotification asks the server to persist and fan out an ad-hoc
// message. Admin/vendor only; the server enforces the role.
func (s *Subscriber) BroadcastNotification(title, message, typ, targetID string) error {
	return s.send(events.EvtBroadcastRequest, map[string]string{
		"title":     title,
		"message":   message,
		"type":      typ,
		"studentId": targetID,
	})
}

func (s *Subscriber) dial(ctx context.Context) error {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("token", s.cfg.Token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	return nil
}

// join re-runs the handshake; required after every dial since the server
// keeps no session continuity across disconnects.
func (s *Subscriber) join() error {
	if err := s.send(s.cfg.Role+":join", map[string]string{"userId": s.cfg.UserID}); err != nil {
		return err
	}
	return s.RequestUnreadCount()
}

func (s *Subscriber) send(event string, payload any) error {
	msg, err := events.Marshal(event, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *Subscriber) readLoop(ctx context.Context) {
	defer close(s.done)
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.setConnected(false)
			if !s.reconnect(ctx) {
				return
			}
			continue
		}

		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		s.handleEnvelope(env)
	}
}

// reconnect retries the dial with exponential backoff, at most MaxAttempts
// times. On success it re-runs the join handshake; events emitted during
// the gap are lost by design, so it also re-syncs the unread counter.
func (s *Subscriber) reconnect(ctx context.Context) bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BackoffBase
	b.Multiplier = 2
	b.MaxInterval = s.cfg.BackoffMax
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		wait := b.NextBackOff()
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}

		if err := s.dial(ctx); err != nil {
			s.cfg.Logger.Warnw("reconnect attempt failed", "attempt", attempt, "err", err)
			continue
		}
		if err := s.join(); err != nil {
			s.teardownConn()
			continue
		}
		s.cfg.Logger.Infow("reconnected", "attempt", attempt)
		return true
	}

	s.surfaceError(errors.New("reconnect attempts exhausted"))
	return false
}

func (s *Subscriber) handleEnvelope(env events.Envelope) {
	switch env.Event {
	case events.EvtNewNotification:
		var n Notification
		if err := json.Unmarshal(env.Payload, &n); err != nil {
			return
		}
		s.mu.Lock()
		s.notifications = append([]Notification{n}, s.notifications...)
		if !n.IsRead {
			s.unread++
		}
		s.mu.Unlock()
		if s.cfg.OnNotification != nil {
			s.cfg.OnNotification(n)
		}

	case events.EvtNotificationRead:
		var p events.ReadPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.applyRead(p.NotificationID)

	case events.EvtAllNotificationsRead:
		s.mu.Lock()
		for i := range s.notifications {
			s.notifications[i].IsRead = true
		}
		s.unread = 0
		s.mu.Unlock()

	case events.EvtUnreadCount:
		var p events.UnreadCountPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		s.mu.Lock()
		s.unread = p.UnreadCount
		s.mu.Unlock()

	case events.EvtErrorBroadcast:
		var p events.ErrorPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.Message != "" {
			s.surfaceError(errors.New(p.Message))
		}

	case events.EvtConnectionStatus:
		// diagnostic only
	}
}

// applyRead flips one record to read. Repeat calls leave the state and the
// counter unchanged, so optimistic updates and server echoes compose.
func (s *Subscriber) applyRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			if !s.notifications[i].IsRead {
				s.notifications[i].IsRead = true
				if s.unread > 0 {
					s.unread--
				}
			}
			return
		}
	}
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *Subscriber) teardownConn() {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.connected = false
	s.mu.Unlock()
}

func (s *Subscriber) surfaceError(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	} else {
		s.cfg.Logger.Warnw("subscriber error", "err", err)
	}
}
