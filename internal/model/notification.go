package model

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types understood by the marketplace frontend.
const (
	TypeOffer        = "offer"
	TypeEvent        = "event"
	TypeAnnouncement = "announcement"
	TypeGeneral      = "general"
)

var (
	ErrNoAddressing        = errors.New("notification has no addressing mode")
	ErrAmbiguousAddressing = errors.New("notification has more than one addressing mode")
	ErrInvalidType         = errors.New("invalid notification type")
)

// Notification is a stored notification record. Addressing is exclusive:
// exactly one of IsGlobal, StudentID, VendorID, AdminID identifies the
// recipient(s).
type Notification struct {
	ID      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title   string             `json:"title" bson:"title"`
	Message string             `json:"message" bson:"message"`
	Type    string             `json:"type" bson:"type"`

	IsGlobal  bool   `json:"isGlobal" bson:"is_global"`
	StudentID string `json:"studentId,omitempty" bson:"student_id,omitempty"`
	VendorID  string `json:"vendorId,omitempty" bson:"vendor_id,omitempty"`
	AdminID   string `json:"adminId,omitempty" bson:"admin_id,omitempty"`

	CreatedBy      string `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	CreatedByModel string `json:"createdByModel,omitempty" bson:"created_by_model,omitempty"`

	RelatedOfferID  string `json:"relatedOfferId,omitempty" bson:"related_offer_id,omitempty"`
	RelatedCouponID string `json:"relatedCouponId,omitempty" bson:"related_coupon_id,omitempty"`

	// Metadata is opaque to the fan-out layer and passed through verbatim
	// (icon hints, action URLs, tags).
	Metadata map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`

	Read      bool      `json:"isRead" bson:"read"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func ValidType(t string) bool {
	switch t {
	case TypeOffer, TypeEvent, TypeAnnouncement, TypeGeneral:
		return true
	}
	return false
}

// Validate enforces the exclusive-addressing invariant and the type enum.
// A record that is global must not also carry a targeted id.
func (n *Notification) Validate() error {
	if !ValidType(n.Type) {
		return ErrInvalidType
	}
	modes := 0
	if n.IsGlobal {
		modes++
	}
	if n.StudentID != "" {
		modes++
	}
	if n.VendorID != "" {
		modes++
	}
	if n.AdminID != "" {
		modes++
	}
	switch {
	case modes == 0:
		return ErrNoAddressing
	case modes > 1:
		return ErrAmbiguousAddressing
	}
	return nil
}
