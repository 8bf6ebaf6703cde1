package display

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// Model is the kitchen display's local keyed collection of active orders.
// Push events and poll results are both applied as idempotent upserts by
// order id, so either transport alone converges and arbitrary interleaving
// or replay of the two is harmless.
type Model struct {
	mu   sync.RWMutex
	byID map[int64]interfaces.OrderSnapshot
}

func NewModel() *Model {
	return &Model{byID: make(map[int64]interfaces.OrderSnapshot)}
}

// Apply folds one push event in: insert if unknown, replace if known,
// remove if the new status left the active set.
func (m *Model) Apply(event interfaces.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !event.Order.Status.Active() {
		delete(m.byID, event.Order.ID)
		return
	}
	m.byID[event.Order.ID] = event.Order
}

// Sync reconciles a full poll result: the fetched set becomes the new
// active view wholesale. Events are snapshots, never deltas, so replacing
// is always safe.
func (m *Model) Sync(snapshots []interfaces.OrderSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[int64]interfaces.OrderSnapshot, len(snapshots))
	for _, s := range snapshots {
		if s.Status.Active() {
			next[s.ID] = s
		}
	}
	m.byID = next
}

// Active returns the current view ordered oldest first.
func (m *Model) Active() []interfaces.OrderSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]interfaces.OrderSnapshot, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Service drives a Model from both transports: a periodic full refetch
// from the order store and the tenant's push channel.
type Service struct {
	model        *Model
	orders       interfaces.OrderService
	consumer     interfaces.EventConsumer
	tenantID     uuid.UUID
	pollInterval time.Duration
	logger       logger.Logger
}

func NewService(orders interfaces.OrderService, consumer interfaces.EventConsumer, tenantID uuid.UUID, pollInterval time.Duration, logger logger.Logger) *Service {
	return &Service{
		model:        NewModel(),
		orders:       orders,
		consumer:     consumer,
		tenantID:     tenantID,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (s *Service) Model() *Model {
	return s.model
}

// Run blocks until the context is canceled, interleaving polling and push
// consumption against the same model.
func (s *Service) Run(ctx context.Context) error {
	go func() {
		err := s.consumer.Consume(ctx, s.tenantID, func(_ context.Context, event interfaces.Event) {
			s.model.Apply(event)
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Error("display_consume_failed", "Event consumption stopped", "", nil, err)
		}
	}()

	// First paint before the first tick.
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("display_refresh_failed", "Initial refresh failed", "", nil, err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("display_refresh_failed", "Poll refresh failed", "", nil, err)
			}
		}
	}
}

// Refresh performs one full refetch of the tenant's active orders.
func (s *Service) Refresh(ctx context.Context) error {
	orders, err := s.orders.ListOrders(ctx, s.tenantID, interfaces.OrderFilter{
		Statuses: []domain.OrderStatus{domain.OrderPending, domain.OrderAccepted, domain.OrderPreparing, domain.OrderReady},
	})
	if err != nil {
		return err
	}
	snapshots := make([]interfaces.OrderSnapshot, len(orders))
	for i, o := range orders {
		snapshots[i] = interfaces.Snapshot(o)
	}
	s.model.Sync(snapshots)
	return nil
}
