package repository

import (
	"context"
	"go-gin-atomic-tickets/internal/model"
	apperrors "go-gin-atomic-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id int) (*model.Event, error)
	// UpdateTicketsLeft 無保護的整數回寫，只給 naive 路徑用
	UpdateTicketsLeft(ctx context.Context, id int, ticketsLeft int) error

	// Transaction methods
	DecrementTicketsLeft(ctx context.Context, tx pgx.Tx, id int) error
	ResetTicketsLeft(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error)
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (name, total_tickets, tickets_left, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, total_tickets, tickets_left, active, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		event.Name, event.TotalTickets, event.TicketsLeft, event.Active,
	).Scan(
		&event.ID,
		&event.Name,
		&event.TotalTickets,
		&event.TicketsLeft,
		&event.Active,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT id, name, total_tickets, tickets_left, active, created_at
		FROM events
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		var event model.Event
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.TotalTickets,
			&event.TicketsLeft,
			&event.Active,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Event, error) {
	query := `
		SELECT id, name, total_tickets, tickets_left, active, created_at
		FROM events
		WHERE id = $1
	`

	var event model.Event
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.TotalTickets,
		&event.TicketsLeft,
		&event.Active,
		&event.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return &event, nil
}

// UpdateTicketsLeft 直接覆寫 tickets_left，沒有任何條件保護。
// 這正是 naive 路徑 lost-update 的來源，不要給其他地方用。
func (r *EventRepositoryImpl) UpdateTicketsLeft(ctx context.Context, id int, ticketsLeft int) error {
	query := `
		UPDATE events
		SET tickets_left = $1
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, ticketsLeft, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

func (r *EventRepositoryImpl) DecrementTicketsLeft(ctx context.Context, tx pgx.Tx, id int) error {
	query := `
		UPDATE events
		SET tickets_left = tickets_left - 1
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

func (r *EventRepositoryImpl) ResetTicketsLeft(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error) {
	query := `
		UPDATE events
		SET tickets_left = total_tickets
		WHERE id = $1
		RETURNING id, name, total_tickets, tickets_left, active, created_at
	`

	var event model.Event
	err := tx.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.TotalTickets,
		&event.TicketsLeft,
		&event.Active,
		&event.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return &event, nil
}
