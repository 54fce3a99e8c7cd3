package service

import (
	"context"

	"go-gin-atomic-tickets/internal/cache"
	"go-gin-atomic-tickets/internal/model"
	"go-gin-atomic-tickets/internal/repository"
)

type EventService interface {
	List(ctx context.Context) ([]*model.Event, error)
	GetByID(ctx context.Context, id int) (*model.Event, error)
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	// OpenForSale 活動開賣：把 Durable 的剩餘票數鏡射到 Redis 計數器
	OpenForSale(ctx context.Context, id int) error
}

type EventServiceImpl struct {
	repo            repository.EventRepository
	admissionEngine cache.RedisAdmissionEngine
}

func NewEventService(repo repository.EventRepository, admissionEngine cache.RedisAdmissionEngine) EventService {
	return &EventServiceImpl{repo: repo, admissionEngine: admissionEngine}
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventServiceImpl) GetByID(ctx context.Context, id int) (*model.Event, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *EventServiceImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if event.TicketsLeft == 0 {
		event.TicketsLeft = event.TotalTickets
	}
	return s.repo.Create(ctx, event)
}

func (s *EventServiceImpl) OpenForSale(ctx context.Context, id int) error {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.admissionEngine.SeedCounter(ctx, event.ID, event.TicketsLeft)
}
