package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusperks/realtime-service/internal/auth"
	"github.com/campusperks/realtime-service/internal/model"
)

var (
	ErrNotFound  = errors.New("notification not found")
	ErrInvalidID = errors.New("invalid notification id")
)

// ListFilter narrows a user's notification feed.
type ListFilter struct {
	Type  string
	Read  *bool
	Page  int64
	Limit int64
}

type NotificationRepo struct {
	col *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) *NotificationRepo {
	return &NotificationRepo{col: db.Collection("notifications")}
}

// ownerFilter scopes a query to the records addressed to this user. Students
// additionally see global broadcasts.
func ownerFilter(userID, role string) bson.M {
	switch role {
	case auth.RoleStudent:
		return bson.M{"$or": bson.A{
			bson.M{"is_global": true},
			bson.M{"student_id": userID},
		}}
	case auth.RoleVendor:
		return bson.M{"vendor_id": userID}
	default:
		return bson.M{"admin_id": userID}
	}
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid
	}
	return nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID, role string, f ListFilter) ([]model.Notification, error) {
	filter := ownerFilter(userID, role)
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Read != nil {
		filter["read"] = *f.Read
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifs := make([]model.Notification, 0, limit)
	if err := cursor.All(ctx, &notifs); err != nil {
		return nil, err
	}
	return notifs, nil
}

// MarkRead flips one record to read. Setting read twice is the same state,
// so a repeat call succeeds.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID, role string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	filter := ownerFilter(userID, role)
	filter["_id"] = oid
	res, err := r.col.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"read": true, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread record addressed to this user and returns
// how many changed. Other users' records are untouched by construction of
// the owner filter.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID, role string) (int64, error) {
	filter := ownerFilter(userID, role)
	filter["read"] = false
	res, err := r.col.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"read": true, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id, userID, role string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	filter := ownerFilter(userID, role)
	filter["_id"] = oid
	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID, role string) (int64, error) {
	filter := ownerFilter(userID, role)
	filter["read"] = false
	return r.col.CountDocuments(ctx, filter)
}

// DeleteOlderThan purges records created before cutoff. Run by the retention
// sweeper, never on the request path.
func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
