// Package events defines the typed realtime events exchanged with clients
// and the deterministic target→room routing used by the fan-out layer.
package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/campusperks/realtime-service/internal/model"
)

// Server→client event names. These are a wire contract with the frontend;
// renaming one is a breaking change.
const (
	EvtNewNotification      = "newNotification"
	EvtNotificationRead     = "notificationRead"
	EvtAllNotificationsRead = "allNotificationsRead"
	EvtUnreadCount          = "notification:unread-count"
	EvtConnectionStatus     = "connection:status"
	EvtErrorBroadcast       = "error:broadcast"

	EvtOfferCreated        = "offerCreated"
	EvtOfferUpdated        = "offerUpdated"
	EvtApprovalChanged     = "approvalStatusChanged"
	EvtVerificationChanged = "verificationStatusChanged"
	EvtSuspensionChanged   = "suspensionStatusChanged"
)

// Client→server event names.
const (
	EvtStudentJoin        = "student:join"
	EvtVendorJoin         = "vendor:join"
	EvtAdminJoin          = "admin:join"
	EvtMarkRead           = "notification:mark-read"
	EvtRequestUnreadCount = "notification:request-unread-count"
	EvtBroadcastRequest   = "notification:broadcast"
)

const RoomAllStudents = "all-students"

func RoomStudent(id string) string { return "student:" + id }
func RoomVendor(id string) string  { return "vendor-notifications:" + id }
func RoomAdmin(id string) string   { return "admin-notifications:" + id }

var ErrNoTarget = errors.New("event has no routing target")

// Target selects the room an event is delivered to. Fields are checked
// first-match in declaration order.
type Target struct {
	Broadcast bool   `json:"broadcast,omitempty"`
	StudentID string `json:"studentId,omitempty"`
	VendorID  string `json:"vendorId,omitempty"`
	AdminID   string `json:"adminId,omitempty"`
}

// Route maps a target to exactly one room. It is pure so routing can be
// tested without a live transport. An empty target is a caller error.
func Route(t Target) (string, error) {
	switch {
	case t.Broadcast:
		return RoomAllStudents, nil
	case t.StudentID != "":
		return RoomStudent(t.StudentID), nil
	case t.VendorID != "":
		return RoomVendor(t.VendorID), nil
	case t.AdminID != "":
		return RoomAdmin(t.AdminID), nil
	}
	return "", ErrNoTarget
}

// TargetFor derives the routing target from a notification's addressing.
// The record must already be validated.
func TargetFor(n *model.Notification) Target {
	return Target{
		Broadcast: n.IsGlobal,
		StudentID: n.StudentID,
		VendorID:  n.VendorID,
		AdminID:   n.AdminID,
	}
}

// Envelope is the wire format for every ws message, both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal wraps a payload in an envelope ready for the wire.
func Marshal(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// Event is a routable domain event.
type Event struct {
	Name    string
	Target  Target
	Payload any
}

// StatusChangePayload carries approval/verification/suspension changes.
type StatusChangePayload struct {
	SubjectID   string    `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	NewStatus   string    `json:"newStatus"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// OfferPayload carries offer/event publications and updates.
type OfferPayload struct {
	OfferID    string    `json:"offerId"`
	VendorID   string    `json:"vendorId"`
	VendorName string    `json:"vendorName"`
	Title      string    `json:"title"`
	Category   string    `json:"category,omitempty"`
	Discount   string    `json:"discount,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
}

type ReadPayload struct {
	NotificationID string `json:"notificationId"`
	IsRead         bool   `json:"isRead"`
}

type UnreadCountPayload struct {
	UnreadCount int64 `json:"unreadCount"`
}

type ConnectionStatusPayload struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
