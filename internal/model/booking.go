package model

import "time"

// BookingStatus 訂票狀態類型
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusFailed    BookingStatus = "failed"
)

// IsValid 驗證狀態是否有效
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusFailed:
		return true
	}
	return false
}

// Booking 訂票模型：只會由 Settlement Worker 在准入成功後寫入
// （naive 路徑例外，它在請求中直接 inline 寫入，那正是它的缺陷）
type Booking struct {
	ID        int           `json:"id" db:"id"`
	UserID    int           `json:"user_id" db:"user_id"`
	EventID   int           `json:"event_id" db:"event_id"`
	DedupeKey string        `json:"dedupe_key" db:"dedupe_key"`
	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// SettlementJob 結算任務：每個 Admitted 結果對應一筆。
// DedupeKey 沿用准入時的冪等 key，隊列重複投遞時靠它保證只落地一次。
type SettlementJob struct {
	EventID   int    `json:"event_id"`
	UserID    int    `json:"user_id"`
	DedupeKey string `json:"dedupe_key"`
}

// PurchaseRequest 購票請求（冪等 key 走 X-Idempotency-Key header）
type PurchaseRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

// PurchaseResponse 購票響應
type PurchaseResponse struct {
	Status  string `json:"status"`
	EventID int    `json:"event_id"`
}
