package service

import (
	"context"
	"testing"
	"time"

	"go-gin-atomic-tickets/internal/cache"
	"go-gin-atomic-tickets/internal/model"
	"go-gin-atomic-tickets/internal/repository"
	"go-gin-atomic-tickets/internal/service"
	apperrors "go-gin-atomic-tickets/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventService() (service.EventService, cache.RedisAdmissionEngine) {
	repo := repository.NewEventRepository(getTestDB())
	engine := cache.NewRedisAdmissionEngine(testRdb, 30*time.Minute)
	return service.NewEventService(repo, engine), engine
}

func TestEventService_Create(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	svc, _ := newEventService()

	event := &model.Event{
		Name:         "Created Event",
		TotalTickets: 50,
		Active:       true,
	}

	created, err := svc.Create(ctx, event)
	assert.NoError(t, err)
	assert.NotZero(t, created.ID)
	// 沒指定 tickets_left 時跟 total 一致
	assert.Equal(t, 50, created.TicketsLeft)
}

func TestEventService_GetByID(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	svc, _ := newEventService()

	id := createTestEvent(t, "Get Event", 10)

	event, err := svc.GetByID(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, "Get Event", event.Name)

	_, err = svc.GetByID(ctx, 9999)
	assert.Equal(t, apperrors.ErrEventNotFound, err)
}

func TestEventService_OpenForSale(t *testing.T) {
	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	ctx := context.Background()
	svc, engine := newEventService()

	id := createTestEvent(t, "Open Event", 25)

	// 開賣前計數器不存在
	_, err := engine.GetCounter(ctx, id)
	require.Equal(t, apperrors.ErrEventNotFound, err)

	require.NoError(t, svc.OpenForSale(ctx, id))

	left, err := engine.GetCounter(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, 25, left)

	t.Run("Failed - NotFound", func(t *testing.T) {
		err := svc.OpenForSale(ctx, 9999)
		assert.Equal(t, apperrors.ErrEventNotFound, err)
	})
}
