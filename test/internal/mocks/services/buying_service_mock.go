package services

import (
	"context"
	"go-gin-atomic-tickets/internal/cache"
	"go-gin-atomic-tickets/internal/model"

	"github.com/stretchr/testify/mock"
)

type BuyingServiceMock struct {
	mock.Mock
}

func NewBuyingServiceMock() *BuyingServiceMock {
	return &BuyingServiceMock{}
}

func (m *BuyingServiceMock) Purchase(ctx context.Context, eventID int, userID int, idempotencyKey string) (cache.AdmissionResult, error) {
	args := m.Called(ctx, eventID, userID, idempotencyKey)
	return args.Get(0).(cache.AdmissionResult), args.Error(1)
}

func (m *BuyingServiceMock) NaivePurchase(ctx context.Context, eventID int, userID int, dedupeKey string) (*model.Booking, error) {
	args := m.Called(ctx, eventID, userID, dedupeKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BuyingServiceMock) SettleBooking(ctx context.Context, job *model.SettlementJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *BuyingServiceMock) ResetEvent(ctx context.Context, eventID int) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}
