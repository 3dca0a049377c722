package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"registration-system/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStatsService() (*StatsService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewStatsService(db, 50), mock
}

func TestStatsService_TrackRegistration(t *testing.T) {
	service, mock := setupTestStatsService()
	ctx := context.Background()

	mock.ExpectIncr("stats:registered:event-1").SetVal(1)
	mock.ExpectExpire("stats:registered:event-1", statsTTL).SetVal(true)

	err := service.TrackRegistration(ctx, "event-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_TrackCheckin(t *testing.T) {
	service, mock := setupTestStatsService()
	ctx := context.Background()

	entry := models.CheckinEntry{
		UserID:      "user-1",
		EventID:     "event-1",
		RefCode:     "AB12CD34",
		CheckedInAt: time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC),
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectIncr("stats:checkins:event-1").SetVal(1)
	mock.ExpectLPush("checkins:recent:event-1", data).SetVal(1)
	mock.ExpectLTrim("checkins:recent:event-1", 0, 49).SetVal("OK")

	err = service.TrackCheckin(ctx, entry)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_TrackCheckinRevoked(t *testing.T) {
	service, mock := setupTestStatsService()
	ctx := context.Background()

	mock.ExpectDecr("stats:checkins:event-1").SetVal(0)

	err := service.TrackCheckinRevoked(ctx, "event-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_CheckinCount(t *testing.T) {
	service, mock := setupTestStatsService()
	ctx := context.Background()

	mock.ExpectGet("stats:checkins:event-1").SetVal("17")

	count, err := service.CheckinCount(ctx, "event-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(17), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_CheckinCount_MissingKey(t *testing.T) {
	service, mock := setupTestStatsService()
	ctx := context.Background()

	mock.ExpectGet("stats:checkins:event-1").RedisNil()

	count, err := service.CheckinCount(ctx, "event-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsService_RecentCheckins(t *testing.T) {
	service, mock := setupTestStatsService()
	ctx := context.Background()

	first := models.CheckinEntry{UserID: "user-2", EventID: "event-1", RefCode: "FF00"}
	second := models.CheckinEntry{UserID: "user-1", EventID: "event-1", RefCode: "AA11"}

	firstData, _ := json.Marshal(first)
	secondData, _ := json.Marshal(second)

	mock.ExpectLRange("checkins:recent:event-1", 0, -1).SetVal([]string{
		string(firstData),
		string(secondData),
		"not-json", // corrupt entries are skipped
	})

	entries, err := service.RecentCheckins(ctx, "event-1")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user-2", entries[0].UserID)
	assert.Equal(t, "user-1", entries[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
