package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps connection metadata and presence in Redis so operators (and
// the presence endpoint) can see who is online. Keys:
//   <prefix>:conn:<userID>     set of connection meta JSON
//   <prefix>:presence:<userID> {status,last_seen}
type Store struct {
	client *redis.Client
	prefix string
}

type ConnMeta struct {
	SocketID    string `json:"socket_id"`
	Role        string `json:"role"`
	ConnectedAt int64  `json:"connected_at"`
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) connKey(userID string) string {
	return fmt.Sprintf("%s:conn:%s", s.prefix, userID)
}

func (s *Store) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

func (s *Store) AddConnection(ctx context.Context, userID, socketID, role string, ttl time.Duration) error {
	meta := ConnMeta{SocketID: socketID, Role: role, ConnectedAt: time.Now().Unix()}
	j, _ := json.Marshal(meta)
	if err := s.client.SAdd(ctx, s.connKey(userID), j).Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.connKey(userID), ttl).Err()
	return s.setPresence(ctx, userID, "online", ttl)
}

func (s *Store) RemoveConnection(ctx context.Context, userID, socketID string) error {
	key := s.connKey(userID)
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		var cm ConnMeta
		if json.Unmarshal([]byte(m), &cm) == nil && cm.SocketID == socketID {
			_ = s.client.SRem(ctx, key, m).Err()
		}
	}
	cnt, _ := s.client.SCard(ctx, key).Result()
	if cnt == 0 {
		return s.setPresence(ctx, userID, "offline", 0)
	}
	return nil
}

func (s *Store) setPresence(ctx context.Context, userID, status string, ttl time.Duration) error {
	b, _ := json.Marshal(map[string]any{"status": status, "last_seen": time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(userID), b, ttl).Err()
}

func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var pres map[string]any
	if err := json.Unmarshal(b, &pres); err != nil {
		return false, err
	}
	status, _ := pres["status"].(string)
	return status == "online", nil
}
