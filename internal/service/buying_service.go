package service

import (
	"context"
	"time"

	"go-gin-atomic-tickets/internal/cache"
	"go-gin-atomic-tickets/internal/model"
	"go-gin-atomic-tickets/internal/queue"
	"go-gin-atomic-tickets/internal/repository"
	apperrors "go-gin-atomic-tickets/pkg/app_errors"
	"go-gin-atomic-tickets/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type BuyingService interface {
	// 購票(原子准入 + 非同步結算)：回應在結算完成前就返回
	Purchase(ctx context.Context, eventID int, userID int, idempotencyKey string) (cache.AdmissionResult, error)
	// 購票(naive 對照組)：read-modify-write 直打 Durable Store，故意不加鎖
	NaivePurchase(ctx context.Context, eventID int, userID int, dedupeKey string) (*model.Booking, error)
	// 結算(Worker 呼叫)：落地 booking + 扣 Durable 票數，依 DedupeKey 冪等
	SettleBooking(ctx context.Context, job *model.SettlementJob) error
	// 重置(管理操作)：從 Durable Store 重算計數器、清掉 bookings 與所有冪等標記
	ResetEvent(ctx context.Context, eventID int) (*model.Event, error)
}

type BuyingServiceImpl struct {
	pool              *pgxpool.Pool
	eventRepository   repository.EventRepository
	bookingRepository repository.BookingRepository
	admissionEngine   cache.RedisAdmissionEngine
	settlementQueue   queue.SettlementQueue

	enqueueMaxRetries   int
	enqueueRetryBackoff time.Duration
	naiveDelay          time.Duration
}

type BuyingServiceOptions struct {
	EnqueueMaxRetries   int
	EnqueueRetryBackoff time.Duration
	NaiveDelay          time.Duration
}

func NewBuyingService(
	pool *pgxpool.Pool,
	eventRepository repository.EventRepository,
	bookingRepository repository.BookingRepository,
	admissionEngine cache.RedisAdmissionEngine,
	settlementQueue queue.SettlementQueue,
	opts BuyingServiceOptions,
) BuyingService {
	if opts.EnqueueMaxRetries <= 0 {
		opts.EnqueueMaxRetries = 3
	}
	if opts.EnqueueRetryBackoff <= 0 {
		opts.EnqueueRetryBackoff = 50 * time.Millisecond
	}
	return &BuyingServiceImpl{
		pool:                pool,
		eventRepository:     eventRepository,
		bookingRepository:   bookingRepository,
		admissionEngine:     admissionEngine,
		settlementQueue:     settlementQueue,
		enqueueMaxRetries:   opts.EnqueueMaxRetries,
		enqueueRetryBackoff: opts.EnqueueRetryBackoff,
		naiveDelay:          opts.NaiveDelay,
	}
}

func (s *BuyingServiceImpl) Purchase(ctx context.Context, eventID int, userID int, idempotencyKey string) (cache.AdmissionResult, error) {
	if idempotencyKey == "" {
		return "", apperrors.ErrMissingIdempotencyKey
	}

	// 1. 原子准入：冪等檢查 + 扣計數器一個 round trip 完成，不碰 Durable Store
	result, err := s.admissionEngine.Admit(ctx, eventID, idempotencyKey)
	if err != nil {
		return cache.AdmissionUnavailable, err
	}

	if result != cache.AdmissionAdmitted {
		// SoldOut / Replayed / UnknownEvent 都是確定的業務結果，直接返回
		return result, nil
	}

	// 2. 准入成功，發結算任務。票已經扣了，這筆任務不能丟：
	//    入隊帶 dedupe key 是冪等的，失敗就重試到預算用完
	job := &model.SettlementJob{
		EventID:   eventID,
		UserID:    userID,
		DedupeKey: idempotencyKey,
	}

	// 用 context.Background()：用戶斷線也要把任務發出去
	publishCtx := context.Background()
	var publishErr error
	for attempt := 0; attempt < s.enqueueMaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.enqueueRetryBackoff)
		}
		publishErr = s.settlementQueue.PublishJob(publishCtx, job)
		if publishErr == nil {
			break
		}
	}
	if publishErr != nil {
		// 不回滾准入：回滾會打破冪等保證。回報「結果未知」，
		// 客戶端用同一個 key 重試會拿到 ReplayedSuccess
		logger.WithComponent("service").Error("publish settlement job failed after retries",
			zap.Int("event_id", eventID), zap.String("dedupe_key", idempotencyKey), zap.Error(publishErr))
		return cache.AdmissionUnavailable, apperrors.ErrQueueUnavailable
	}

	return cache.AdmissionAdmitted, nil
}

// NaivePurchase 是對照組：先讀剩餘票數、模擬處理延遲、再把減一後的值寫回去。
// 兩個併發請求會讀到同一個值、各自寫回同一個結果，超賣就是這樣來的。
// 不要修這段，它存在的目的就是輸給原子路徑。
func (s *BuyingServiceImpl) NaivePurchase(ctx context.Context, eventID int, userID int, dedupeKey string) (*model.Booking, error) {
	event, err := s.eventRepository.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if event.TicketsLeft <= 0 {
		return nil, apperrors.ErrSoldOut
	}

	// 模擬付款等處理時間，放大 race window
	if s.naiveDelay > 0 {
		time.Sleep(s.naiveDelay)
	}

	if err := s.eventRepository.UpdateTicketsLeft(ctx, eventID, event.TicketsLeft-1); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		UserID:    userID,
		EventID:   eventID,
		DedupeKey: dedupeKey,
		Status:    model.BookingStatusConfirmed,
	}
	return s.bookingRepository.Create(ctx, booking)
}

func (s *BuyingServiceImpl) SettleBooking(ctx context.Context, job *model.SettlementJob) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	booking := &model.Booking{
		UserID:    job.UserID,
		EventID:   job.EventID,
		DedupeKey: job.DedupeKey,
		Status:    model.BookingStatusConfirmed,
	}

	inserted, err := s.bookingRepository.CreateIfAbsent(ctx, tx, booking)
	if err != nil {
		return err
	}

	// 同一筆 job 被重複投遞：booking 已落地、票已扣過，直接視為成功
	if !inserted {
		return tx.Commit(ctx)
	}

	if err := s.eventRepository.DecrementTicketsLeft(ctx, tx, job.EventID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *BuyingServiceImpl) ResetEvent(ctx context.Context, eventID int) (*model.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := s.eventRepository.ResetTicketsLeft(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.bookingRepository.DeleteByEventID(ctx, tx, eventID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// Durable 已重置，接著把 Redis 計數器整包覆寫、清掉所有冪等標記。
	// 這是唯一允許修復 Fast/Durable 分歧的路徑。
	if err := s.admissionEngine.SeedCounter(ctx, eventID, event.TotalTickets); err != nil {
		return nil, err
	}
	if err := s.admissionEngine.ClearMarkers(ctx); err != nil {
		return nil, err
	}

	return event, nil
}
