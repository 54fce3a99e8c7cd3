package model

import "time"

// Event 活動模型：TicketsLeft 是 Durable Store 的長期真相，
// Redis 的計數器只是它的衍生快取
type Event struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	TotalTickets int       `json:"total_tickets" db:"total_tickets"`
	TicketsLeft  int       `json:"tickets_left" db:"tickets_left"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CreateEventRequest 創建活動請求
type CreateEventRequest struct {
	Name         string `json:"name" binding:"required"`
	TotalTickets int    `json:"total_tickets" binding:"required,min=1"`
	Active       *bool  `json:"active"`
}

// EventResponse 活動響應
type EventResponse struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	TotalTickets int    `json:"total_tickets"`
	TicketsLeft  int    `json:"tickets_left"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
}
