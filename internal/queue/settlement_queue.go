package queue

import (
	"context"
	"go-gin-atomic-tickets/internal/model"
)

type Delivery struct {
	Data *model.SettlementJob
	Ack  func()
	Nack func(requeue bool)
}

type SettlementQueue interface {
	// 發送結算任務到隊列（請求路徑 fire-and-forget）
	PublishJob(ctx context.Context, job *model.SettlementJob) error
	// 訂閱結算任務隊列（at-least-once）
	SubscribeJobs(ctx context.Context) (<-chan Delivery, error)
}

type SettlementQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.SettlementJob
}

func NewSettlementQueue(bufferSize int) SettlementQueue {
	return &SettlementQueueImpl{
		ch: make(chan *model.SettlementJob, bufferSize),
	}
}

func (q *SettlementQueueImpl) PublishJob(ctx context.Context, job *model.SettlementJob) error {
	// 模擬 MQ 發送；buffer 滿時不能無限期卡住呼叫端，
	// 讓 Purchase 的入隊重試預算有機會走完
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *SettlementQueueImpl) SubscribeJobs(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.ch:
				if !ok {
					return
				}

				// 將原始 Job 包裝成 Delivery 格式給 Worker
				out <- Delivery{
					Data: job,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) {
						if requeue {
							// 簡單模擬重回隊列；訂閱結束後不再卡住 worker
							select {
							case q.ch <- job:
							case <-ctx.Done():
							}
						}
					},
				}
			}
		}
	}()

	return out, nil
}
