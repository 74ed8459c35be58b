// Package redis keeps scheduler alert rows in redis so several hosts can
// share one schedule while medications stay in the SQL store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/storage"
)

const (
	alertKeyPrefix = constants.AppName + ":alert:"
	alertIndexKey  = constants.AppName + ":alerts"
)

// AlertStore stores each entry as JSON under its own key and indexes ids in a
// sorted set scored by fire time in milliseconds.
type AlertStore struct {
	client *redis.Client
}

// New connects using a redis:// URL.
func New(rawURL string) (*AlertStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(opts)), nil
}

func NewWithClient(client *redis.Client) *AlertStore {
	return &AlertStore{client: client}
}

// Ping tests the connection.
func (s *AlertStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *AlertStore) Close() error {
	return s.client.Close()
}

func alertKey(id string) string {
	return alertKeyPrefix + id
}

func (s *AlertStore) UpsertAlert(ctx context.Context, entry models.AlertEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, alertKey(entry.ID), data, 0)
		pipe.ZAdd(ctx, alertIndexKey, &redis.Z{
			Score:  float64(entry.FireAt.UnixMilli()),
			Member: entry.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

func (s *AlertStore) GetAlert(ctx context.Context, id string) (models.AlertEntry, error) {
	data, err := s.client.Get(ctx, alertKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.AlertEntry{}, fmt.Errorf("alert %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.AlertEntry{}, fmt.Errorf("failed to get alert: %w", err)
	}

	var entry models.AlertEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.AlertEntry{}, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	return entry, nil
}

func (s *AlertStore) ListAlerts(ctx context.Context) ([]models.AlertEntry, error) {
	ids, err := s.client.ZRange(ctx, alertIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read alert index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = alertKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}

	entries := make([]models.AlertEntry, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry without a row, left behind by an interrupted delete
			s.client.ZRem(ctx, alertIndexKey, ids[i])
			continue
		}
		var entry models.AlertEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *AlertStore) DeleteAlert(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, alertKey(id))
		pipe.ZRem(ctx, alertIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("alert %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
