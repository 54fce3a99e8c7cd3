package cache

import (
	"context"
	"errors"
	"fmt"
	"go-gin-atomic-tickets/pkg/app_errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// AdmissionResult 准入結果：搶票請求的五種結局
type AdmissionResult string

const (
	AdmissionAdmitted     AdmissionResult = "admitted"
	AdmissionReplayed     AdmissionResult = "replayed_success"
	AdmissionSoldOut      AdmissionResult = "sold_out"
	AdmissionUnknownEvent AdmissionResult = "unknown_event"
	// AdmissionUnavailable 代表「結果未知」，不是「沒搶到」。
	// 呼叫端必須用同一個冪等 key 重試，不能當成 SoldOut。
	AdmissionUnavailable AdmissionResult = "engine_unavailable"
)

type RedisAdmissionEngine interface {
	// 預熱 / 重置：把活動剩餘票數整包寫入 Redis
	SeedCounter(ctx context.Context, eventID int, ticketsLeft int) error
	// 獲取：讀取活動剩餘票數（advisory，真相在 Durable Store）
	GetCounter(ctx context.Context, eventID int) (int, error)
	// 准入：冪等檢查 + 扣減計數器 + 寫入冪等標記，單一 Lua 腳本原子執行
	Admit(ctx context.Context, eventID int, idempotencyKey string) (AdmissionResult, error)
	// 清除：刪除所有冪等標記（僅供 reset 操作使用）
	ClearMarkers(ctx context.Context) error
}

type RedisAdmissionEngineImpl struct {
	client      *redis.Client
	admitScript *redis.Script
	markerTTL   time.Duration
}

// 准入腳本，整段在 Redis 單執行緒內跑完，四步不可能被其他請求插隊：
//  1. 冪等標記已存在 -> 2 (重放，不動計數器)
//  2. 計數器不存在   -> -3 (未知活動)
//  3. 計數器 <= 0    -> -1 (售罄，不動計數器)
//  4. 扣 1 + 寫入標記(帶 TTL) -> 1 (搶票成功)
//
// 注意：標記過期只代表重試窗口關閉，不會把賣掉的票加回來；
// 想恢復票數只有 reset 一條路。
const admitScript = `
	local counter_key = KEYS[1]
	local marker_key = KEYS[2]
	local ttl = tonumber(ARGV[1])

	if redis.call('EXISTS', marker_key) == 1 then
		return 2
	end

	local left = redis.call('GET', counter_key)
	if not left then
		return -3
	end

	if tonumber(left) <= 0 then
		return -1
	end

	redis.call('DECR', counter_key)
	redis.call('SET', marker_key, '1', 'EX', ttl)
	return 1
`

// NewRedisAdmissionEngine 建立准入引擎。client 由外部注入，
// 腳本在這裡註冊成 handle（EVALSHA，未載入時自動退回 EVAL）。
func NewRedisAdmissionEngine(client *redis.Client, markerTTL time.Duration) RedisAdmissionEngine {
	return &RedisAdmissionEngineImpl{
		client:      client,
		admitScript: redis.NewScript(admitScript),
		markerTTL:   markerTTL,
	}
}

// 活動計數器 key
func (e *RedisAdmissionEngineImpl) getCounterKey(eventID int) string {
	return fmt.Sprintf("event:%d:tickets_left", eventID)
}

// 冪等標記 key
func (e *RedisAdmissionEngineImpl) getMarkerKey(idempotencyKey string) string {
	return fmt.Sprintf("idem:%s", idempotencyKey)
}

func (e *RedisAdmissionEngineImpl) SeedCounter(ctx context.Context, eventID int, ticketsLeft int) error {
	key := e.getCounterKey(eventID)
	return e.client.Set(ctx, key, ticketsLeft, 0).Err()
}

func (e *RedisAdmissionEngineImpl) GetCounter(ctx context.Context, eventID int) (int, error) {
	key := e.getCounterKey(eventID)
	val, err := e.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return -1, apperrors.ErrEventNotFound
	}
	return val, err
}

func (e *RedisAdmissionEngineImpl) Admit(ctx context.Context, eventID int, idempotencyKey string) (AdmissionResult, error) {
	if idempotencyKey == "" {
		return "", apperrors.ErrMissingIdempotencyKey
	}

	counterKey := e.getCounterKey(eventID)
	markerKey := e.getMarkerKey(idempotencyKey)

	ttlSeconds := int(e.markerTTL.Seconds())

	result, err := e.admitScript.Run(ctx, e.client, []string{counterKey, markerKey}, ttlSeconds).Result()
	if err != nil {
		// Redis 連不上 = 結果未知，絕不能回報成 SoldOut
		return AdmissionUnavailable, fmt.Errorf("%w: %v", apperrors.ErrEngineUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return AdmissionUnavailable, errors.New("unexpected script result")
	}

	switch code {
	case 1:
		return AdmissionAdmitted, nil
	case 2:
		return AdmissionReplayed, nil
	case -1:
		return AdmissionSoldOut, nil
	case -3:
		return AdmissionUnknownEvent, nil
	default:
		return AdmissionUnavailable, fmt.Errorf("unexpected script code: %d", code)
	}
}

func (e *RedisAdmissionEngineImpl) ClearMarkers(ctx context.Context) error {
	iter := e.client.Scan(ctx, 0, "idem:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := e.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
