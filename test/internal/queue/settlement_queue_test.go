package queue_test

import (
	"context"
	"testing"
	"time"

	"go-gin-atomic-tickets/internal/model"
	"go-gin-atomic-tickets/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementQueue_PublishAndSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewSettlementQueue(10)

	job := &model.SettlementJob{EventID: 1, UserID: 2, DedupeKey: "mem-key-1"}
	require.NoError(t, q.PublishJob(ctx, job))

	delCh, err := q.SubscribeJobs(ctx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		require.NotNil(t, d.Data)
		assert.Equal(t, job.DedupeKey, d.Data.DedupeKey)
		d.Ack()
	case <-ctx.Done():
		t.Fatal("timeout 未收到訊息")
	}
}

// buffer 滿的時候 PublishJob 不能永久阻塞：
// ctx 到期就返回錯誤，讓呼叫端的重試預算有機會走完
func TestSettlementQueue_PublishJob_fullBuffer_honorsCtx(t *testing.T) {
	ctx := context.Background()
	q := queue.NewSettlementQueue(1)

	// 塞滿 buffer
	require.NoError(t, q.PublishJob(ctx, &model.SettlementJob{EventID: 1, UserID: 1, DedupeKey: "fill"}))

	pubCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	err := q.PublishJob(pubCtx, &model.SettlementJob{EventID: 1, UserID: 2, DedupeKey: "overflow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSettlementQueue_NackRequeue_redelivers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewSettlementQueue(10)

	job := &model.SettlementJob{EventID: 3, UserID: 4, DedupeKey: "mem-requeue"}
	require.NoError(t, q.PublishJob(ctx, job))

	delCh, err := q.SubscribeJobs(ctx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		d.Nack(true)
	case <-ctx.Done():
		t.Fatal("timeout 未收到第一筆")
	}

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		require.NotNil(t, d.Data)
		assert.Equal(t, job.DedupeKey, d.Data.DedupeKey, "Nack(requeue) 後應再次投遞同一筆")
	case <-ctx.Done():
		t.Fatal("timeout 未收到重試投遞")
	}
}
