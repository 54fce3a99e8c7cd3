package repository

import (
	"context"
	"go-gin-atomic-tickets/internal/model"
	apperrors "go-gin-atomic-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	FindByID(ctx context.Context, id int) (*model.Booking, error)
	ListByEventID(ctx context.Context, eventID int) ([]*model.Booking, error)
	CountByEventID(ctx context.Context, eventID int) (int, error)

	// Transaction methods
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, booking *model.Booking) (bool, error)
	DeleteByEventID(ctx context.Context, tx pgx.Tx, eventID int) error
}

type BookingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &BookingRepositoryImpl{
		pool: pool,
	}
}

// Create 直接寫入一筆 booking，naive 路徑在請求中 inline 使用
func (r *BookingRepositoryImpl) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	query := `
		INSERT INTO bookings (user_id, event_id, dedupe_key, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, event_id, dedupe_key, status, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		booking.UserID, booking.EventID, booking.DedupeKey, booking.Status,
	).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.EventID,
		&booking.DedupeKey,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// CreateIfAbsent 依 dedupe_key 冪等寫入。回傳 false 表示同 key 已落地過，
// 這次是隊列的重複投遞，呼叫端不應再扣 Durable 票數。
func (r *BookingRepositoryImpl) CreateIfAbsent(ctx context.Context, tx pgx.Tx, booking *model.Booking) (bool, error) {
	query := `
		INSERT INTO bookings (user_id, event_id, dedupe_key, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		booking.UserID, booking.EventID, booking.DedupeKey, booking.Status,
	).Scan(
		&booking.ID,
		&booking.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Booking, error) {
	query := `
		SELECT id, user_id, event_id, dedupe_key, status, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking model.Booking
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.EventID,
		&booking.DedupeKey,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}

	return &booking, nil
}

func (r *BookingRepositoryImpl) ListByEventID(ctx context.Context, eventID int) ([]*model.Booking, error) {
	query := `
		SELECT id, user_id, event_id, dedupe_key, status, created_at
		FROM bookings
		WHERE event_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		var booking model.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.EventID,
			&booking.DedupeKey,
			&booking.Status,
			&booking.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, &booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *BookingRepositoryImpl) CountByEventID(ctx context.Context, eventID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE event_id = $1
	`

	var count int
	err := r.pool.QueryRow(ctx, query, eventID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *BookingRepositoryImpl) DeleteByEventID(ctx context.Context, tx pgx.Tx, eventID int) error {
	query := `
		DELETE FROM bookings
		WHERE event_id = $1
	`

	_, err := tx.Exec(ctx, query, eventID)
	return err
}
