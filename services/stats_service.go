package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"registration-system/models"

	"github.com/redis/go-redis/v9"
)

const statsTTL = 7 * 24 * time.Hour

// StatsService keeps live per-event counters in Redis so the admin
// attendance view and the Prometheus monitor never hit the database.
type StatsService struct {
	Redis       *redis.Client
	recentLimit int64
}

func NewStatsService(redisClient *redis.Client, recentLimit int) *StatsService {
	if recentLimit <= 0 {
		recentLimit = 50
	}
	return &StatsService{
		Redis:       redisClient,
		recentLimit: int64(recentLimit),
	}
}

func registeredKey(eventID string) string {
	return fmt.Sprintf("stats:registered:%s", eventID)
}

func checkinsKey(eventID string) string {
	return fmt.Sprintf("stats:checkins:%s", eventID)
}

func recentKey(eventID string) string {
	return fmt.Sprintf("checkins:recent:%s", eventID)
}

func (s *StatsService) TrackRegistration(ctx context.Context, eventID string) error {
	key := registeredKey(eventID)
	if err := s.Redis.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return s.Redis.Expire(ctx, key, statsTTL).Err()
}

func (s *StatsService) TrackCancellation(ctx context.Context, eventID string) error {
	return s.Redis.Decr(ctx, registeredKey(eventID)).Err()
}

func (s *StatsService) TrackCheckin(ctx context.Context, entry models.CheckinEntry) error {
	if err := s.Redis.Incr(ctx, checkinsKey(entry.EventID)).Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := recentKey(entry.EventID)
	if err := s.Redis.LPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return s.Redis.LTrim(ctx, key, 0, s.recentLimit-1).Err()
}

func (s *StatsService) TrackCheckinRevoked(ctx context.Context, eventID string) error {
	return s.Redis.Decr(ctx, checkinsKey(eventID)).Err()
}

func (s *StatsService) RegisteredCount(ctx context.Context, eventID string) (int64, error) {
	return s.counter(ctx, registeredKey(eventID))
}

func (s *StatsService) CheckinCount(ctx context.Context, eventID string) (int64, error) {
	return s.counter(ctx, checkinsKey(eventID))
}

func (s *StatsService) RecentCheckins(ctx context.Context, eventID string) ([]models.CheckinEntry, error) {
	raw, err := s.Redis.LRange(ctx, recentKey(eventID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.CheckinEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.CheckinEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *StatsService) counter(ctx context.Context, key string) (int64, error) {
	val, err := s.Redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}
