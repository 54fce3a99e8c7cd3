package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-gin-atomic-tickets/internal/cache"
	"go-gin-atomic-tickets/internal/model"
	"go-gin-atomic-tickets/internal/queue"
	"go-gin-atomic-tickets/internal/repository"
	"go-gin-atomic-tickets/internal/service"
	apperrors "go-gin-atomic-tickets/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarkerTTL = 30 * time.Minute

func newBuyingService(q queue.SettlementQueue) (service.BuyingService, cache.RedisAdmissionEngine) {
	eventRepo := repository.NewEventRepository(getTestDB())
	bookingRepo := repository.NewBookingRepository(getTestDB())
	engine := cache.NewRedisAdmissionEngine(testRdb, testMarkerTTL)
	svc := service.NewBuyingService(getTestDB(), eventRepo, bookingRepo, engine, q, service.BuyingServiceOptions{
		EnqueueMaxRetries:   3,
		EnqueueRetryBackoff: 10 * time.Millisecond,
	})
	return svc, engine
}

type failingQueue struct{}

func (f *failingQueue) PublishJob(ctx context.Context, job *model.SettlementJob) error {
	return errors.New("queue publish failed") // 總是返回錯誤
}

func (f *failingQueue) SubscribeJobs(ctx context.Context) (<-chan queue.Delivery, error) {
	out := make(chan queue.Delivery)
	close(out)
	return out, nil
}

func TestBuyingService_Purchase(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	q := queue.NewSettlementQueue(100)
	svc, engine := newBuyingService(q)

	eventID := createTestEvent(t, "Purchase", 10)
	require.NoError(t, engine.SeedCounter(ctx, eventID, 10))

	t.Run("Success - Admitted", func(t *testing.T) {
		result, err := svc.Purchase(ctx, eventID, 1, "buy-key-1")
		assert.NoError(t, err)
		assert.Equal(t, cache.AdmissionAdmitted, result)

		left, err := engine.GetCounter(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 9, left)
	})

	t.Run("Success - ReplayedSuccess", func(t *testing.T) {
		result, err := svc.Purchase(ctx, eventID, 1, "buy-key-1")
		assert.NoError(t, err)
		assert.Equal(t, cache.AdmissionReplayed, result)

		// 重放不會再扣票、也不會再發結算任務
		left, err := engine.GetCounter(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 9, left)
	})

	t.Run("Failed - UnknownEvent", func(t *testing.T) {
		result, err := svc.Purchase(ctx, 9999, 1, "buy-key-2")
		assert.NoError(t, err)
		assert.Equal(t, cache.AdmissionUnknownEvent, result)
	})

	t.Run("Failed - MissingIdempotencyKey", func(t *testing.T) {
		_, err := svc.Purchase(ctx, eventID, 1, "")
		assert.Equal(t, apperrors.ErrMissingIdempotencyKey, err)
	})
}

func TestBuyingService_Purchase_soldOut(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	q := queue.NewSettlementQueue(100)
	svc, engine := newBuyingService(q)

	eventID := createTestEvent(t, "SoldOut", 1)
	require.NoError(t, engine.SeedCounter(ctx, eventID, 1))

	result, err := svc.Purchase(ctx, eventID, 1, "key-first")
	require.NoError(t, err)
	require.Equal(t, cache.AdmissionAdmitted, result)

	result, err = svc.Purchase(ctx, eventID, 2, "key-second")
	assert.NoError(t, err)
	assert.Equal(t, cache.AdmissionSoldOut, result)

	left, err := engine.GetCounter(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

// 入隊一直失敗：回報「結果未知」而不是回滾准入，
// 客戶端帶同一個 key 重試會拿到 ReplayedSuccess
func TestBuyingService_Purchase_queueUnavailable(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	svc, engine := newBuyingService(&failingQueue{})

	eventID := createTestEvent(t, "QueueDown", 10)
	require.NoError(t, engine.SeedCounter(ctx, eventID, 10))

	result, err := svc.Purchase(ctx, eventID, 1, "key-queue-down")
	assert.Equal(t, apperrors.ErrQueueUnavailable, err)
	assert.Equal(t, cache.AdmissionUnavailable, result)

	// 准入已成立：同 key 重試是重放
	result, err = svc.Purchase(ctx, eventID, 1, "key-queue-down")
	assert.NoError(t, err)
	assert.Equal(t, cache.AdmissionReplayed, result)
}

func TestBuyingService_SettleBooking(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	q := queue.NewSettlementQueue(100)
	svc, _ := newBuyingService(q)
	eventRepo := repository.NewEventRepository(getTestDB())
	bookingRepo := repository.NewBookingRepository(getTestDB())

	eventID := createTestEvent(t, "Settle", 10)

	t.Run("Success", func(t *testing.T) {
		job := &model.SettlementJob{EventID: eventID, UserID: 1, DedupeKey: "settle-key-1"}
		err := svc.SettleBooking(ctx, job)
		assert.NoError(t, err)

		// booking 落地、Durable 票數扣 1
		count, err := bookingRepo.CountByEventID(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		event, err := eventRepo.FindByID(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 9, event.TicketsLeft)
	})

	t.Run("Success - RedeliveredJobAppliedOnce", func(t *testing.T) {
		// 同一筆 job 投遞兩次：booking 不重複、票不重複扣
		job := &model.SettlementJob{EventID: eventID, UserID: 1, DedupeKey: "settle-key-1"}
		err := svc.SettleBooking(ctx, job)
		assert.NoError(t, err)

		count, err := bookingRepo.CountByEventID(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		event, err := eventRepo.FindByID(ctx, eventID)
		require.NoError(t, err)
		assert.Equal(t, 9, event.TicketsLeft)
	})
}

func TestBuyingService_ResetEvent(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	q := queue.NewSettlementQueue(100)
	svc, engine := newBuyingService(q)
	bookingRepo := repository.NewBookingRepository(getTestDB())

	const capacity = 10
	eventID := createTestEvent(t, "Reset", capacity)
	require.NoError(t, engine.SeedCounter(ctx, eventID, capacity))

	// 賣光
	for i := 0; i < capacity; i++ {
		result, err := svc.Purchase(ctx, eventID, i, fmt.Sprintf("reset-key-%d", i))
		require.NoError(t, err)
		require.Equal(t, cache.AdmissionAdmitted, result)
	}
	for i := 0; i < capacity; i++ {
		require.NoError(t, svc.SettleBooking(ctx, &model.SettlementJob{
			EventID: eventID, UserID: i, DedupeKey: fmt.Sprintf("reset-key-%d", i),
		}))
	}

	result, err := svc.Purchase(ctx, eventID, 99, "reset-key-extra")
	require.NoError(t, err)
	require.Equal(t, cache.AdmissionSoldOut, result)

	// 重置
	event, err := svc.ResetEvent(ctx, eventID)
	assert.NoError(t, err)
	assert.Equal(t, capacity, event.TicketsLeft)

	// 計數器回滿、bookings 清空
	left, err := engine.GetCounter(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, capacity, left)

	count, err := bookingRepo.CountByEventID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// 重置後新的購買成功
	result, err = svc.Purchase(ctx, eventID, 100, "post-reset-key")
	assert.NoError(t, err)
	assert.Equal(t, cache.AdmissionAdmitted, result)

	// 舊的冪等 key 不再重放，而是消耗新票
	result, err = svc.Purchase(ctx, eventID, 0, "reset-key-0")
	assert.NoError(t, err)
	assert.Equal(t, cache.AdmissionAdmitted, result)
}
