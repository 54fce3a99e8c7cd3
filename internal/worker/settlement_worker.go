package worker

import (
	"context"
	"go-gin-atomic-tickets/internal/queue"
	"go-gin-atomic-tickets/internal/service"
	"go-gin-atomic-tickets/pkg/logger"

	"go.uber.org/zap"
)

type SettlementWorker interface {
	// 啟動消費者池，訂閱結算任務隊列
	Start(ctx context.Context) error
}

type SettlementWorkerImpl struct {
	service service.BuyingService
	queue   queue.SettlementQueue
	// 消費者數量：跨活動可平行，同一筆 job 的 exactly-once 由 DedupeKey 保證
	workerCount int
}

func NewSettlementWorker(service service.BuyingService, queue queue.SettlementQueue, workerCount int) SettlementWorker {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &SettlementWorkerImpl{
		service:     service,
		queue:       queue,
		workerCount: workerCount,
	}
}

func (w *SettlementWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeJobs(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < w.workerCount; i++ {
		go func() {
			for msg := range msgs {
				// 准入已經成功、票已經扣了，這筆一定要落地；
				// Durable Store 暫時故障就 Nack 重試，絕不能默默丟掉
				err := w.service.SettleBooking(ctx, msg.Data)

				if err != nil {
					logger.WithComponent("worker").Warn("settle booking failed, will retry",
						zap.String("dedupe_key", msg.Data.DedupeKey), zap.Error(err))
					msg.Nack(true)
				} else {
					// 成功落地之後才 Ack
					msg.Ack()
				}
			}
		}()
	}
	return nil
}
