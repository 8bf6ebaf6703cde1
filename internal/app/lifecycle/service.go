package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// Service coordinates the order, kitchen and payment state machines. It is
// the only writer of the order aggregate; every mutation runs under the
// per-order row lock and appends its audit trail in the same transaction.
// Events go out only after commit.
type Service struct {
	orders    interfaces.OrderRepository
	tenants   interfaces.TenantRepository
	publisher interfaces.EventPublisher
	logger    logger.Logger
}

func NewService(orders interfaces.OrderRepository, tenants interfaces.TenantRepository, publisher interfaces.EventPublisher, logger logger.Logger) *Service {
	return &Service{
		orders:    orders,
		tenants:   tenants,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) CreateOrder(ctx context.Context, tenantID uuid.UUID, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, domain.ErrTenantInactive
	}

	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.OrderItem{
			MenuName:      item.MenuName,
			MenuPrice:     item.MenuPrice,
			Quantity:      item.Quantity,
			KitchenStatus: domain.KitchenPending,
			Note:          item.Note,
		}
		for _, opt := range item.Options {
			items[i].Options = append(items[i].Options, domain.OrderItemOption{
				Name:  opt.Name,
				Price: opt.Price,
			})
		}
	}

	order := domain.NewOrder(tenant, cmd.TableNumber, items)

	// The daily code is count-based, so two concurrent creates can mint the
	// same one. The unique constraint catches the loser; mint again.
	for attempt := 0; ; attempt++ {
		code, err := s.orders.NextOrderCode(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to generate order code: %w", err)
		}
		order.Code = code

		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrDuplicateOrderCode) && attempt < 2 {
			continue
		}
		s.logger.Error("order_create_failed", "Failed to persist order", "", nil, err)
		return nil, err
	}

	s.publish(ctx, interfaces.EventOrderCreated, order)
	s.logger.Debug("order_created", "Order created", "", map[string]interface{}{
		"order_code": order.Code,
		"tenant_id":  tenantID.String(),
	})
	return order, nil
}

func (s *Service) TransitionStatus(ctx context.Context, tenantID uuid.UUID, orderID int64, target domain.OrderStatus, actor interfaces.Actor, note *string, force bool) (*domain.Order, error) {
	if !target.Valid() {
		return nil, domain.ErrInvalidTransition
	}
	// Force is only honored for authorized actors; everyone else goes
	// through the adjacency table.
	force = force && actor.CanForce()

	changed := false
	order, err := s.orders.Update(ctx, tenantID, orderID, func(order *domain.Order) (*domain.StatusLog, error) {
		if order.Status == target {
			// Already applied, e.g. a retry after lock contention.
			return nil, nil
		}
		from := order.Status
		if err := order.TransitionTo(target, force); err != nil {
			return nil, err
		}
		changed = true
		logNote := note
		if force && logNote == nil {
			n := "forced override"
			logNote = &n
		}
		return &domain.StatusLog{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   target,
			ChangedBy:  actor.Name,
			Note:       logNote,
			ChangedAt:  time.Now(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, interfaces.EventOrderStatusUpdated, order)
	}
	return order, nil
}

func (s *Service) UpdateKitchenStatus(ctx context.Context, tenantID uuid.UUID, orderID int64, itemID *int64, status domain.KitchenStatus, actor interfaces.Actor) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatusValue
	}

	changed := false
	order, err := s.orders.Update(ctx, tenantID, orderID, func(order *domain.Order) (*domain.StatusLog, error) {
		if itemID != nil {
			item := order.Item(*itemID)
			if item == nil {
				return nil, domain.ErrOrderItemNotFound
			}
			if item.KitchenStatus != status {
				item.KitchenStatus = status
				changed = true
			}
			return nil, nil
		}
		for i := range order.Items {
			if order.Items[i].KitchenStatus != status {
				order.Items[i].KitchenStatus = status
				changed = true
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, interfaces.EventOrderKitchenStatusUpdated, order)
	}
	return order, nil
}

func (s *Service) MarkAsPaid(ctx context.Context, tenantID uuid.UUID, orderID int64, actor interfaces.Actor, method domain.PaymentMethod) (*domain.Order, error) {
	changed := false
	order, err := s.orders.Update(ctx, tenantID, orderID, func(order *domain.Order) (*domain.StatusLog, error) {
		if order.PaymentStatus == domain.PaymentPaid {
			// Cashier clients double-submit under network retry.
			return nil, nil
		}
		if !order.PaymentStatus.CanTransitionTo(domain.PaymentPaid) {
			// Failed and refunded are terminal; settling those takes a new
			// payment flow, not a flip back to paid.
			return nil, domain.ErrInvalidTransition
		}
		payment := order.CurrentPayment()
		if payment == nil {
			if method != domain.MethodCash {
				return nil, domain.ErrPaymentRecordMissing
			}
			// Cash skips straight to paid; the payment row is recorded in
			// the same transaction.
			order.Payments = append(order.Payments, domain.Payment{
				OrderID:   order.ID,
				TenantID:  order.TenantID,
				Method:    domain.MethodCash,
				Amount:    order.Total,
				CreatedAt: time.Now(),
			})
			payment = &order.Payments[len(order.Payments)-1]
		}
		now := time.Now()
		verifier := actor.UserID
		payment.VerifiedBy = &verifier
		payment.VerifiedAt = &now
		order.PaymentStatus = domain.PaymentPaid
		order.PaymentMethod = payment.Method
		order.UpdatedAt = now
		changed = true
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, interfaces.EventOrderStatusUpdated, order)
	}
	return order, nil
}

// TransitionPayment handles the non-paid payment states; moving to paid
// goes through MarkAsPaid so the payment-row precondition applies.
func (s *Service) TransitionPayment(ctx context.Context, tenantID uuid.UUID, orderID int64, target domain.PaymentStatus, actor interfaces.Actor) (*domain.Order, error) {
	if !target.Valid() {
		return nil, domain.ErrInvalidTransition
	}
	if target == domain.PaymentPaid {
		return s.MarkAsPaid(ctx, tenantID, orderID, actor, "")
	}

	changed := false
	order, err := s.orders.Update(ctx, tenantID, orderID, func(order *domain.Order) (*domain.StatusLog, error) {
		if order.PaymentStatus == target {
			return nil, nil
		}
		if !order.PaymentStatus.CanTransitionTo(target) {
			return nil, domain.ErrInvalidTransition
		}
		order.PaymentStatus = target
		order.UpdatedAt = time.Now()
		changed = true
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, interfaces.EventOrderStatusUpdated, order)
	}
	return order, nil
}

func (s *Service) MarkInvoicePrinted(ctx context.Context, tenantID uuid.UUID, orderID int64) (*domain.Order, error) {
	return s.orders.Update(ctx, tenantID, orderID, func(order *domain.Order) (*domain.StatusLog, error) {
		if order.InvoicePrintedAt != nil {
			// Set at most once.
			return nil, nil
		}
		now := time.Now()
		order.InvoicePrintedAt = &now
		order.UpdatedAt = now
		return nil, nil
	})
}

func (s *Service) ListOrders(ctx context.Context, tenantID uuid.UUID, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	return s.orders.List(ctx, tenantID, filter)
}

func (s *Service) GetOrder(ctx context.Context, tenantID uuid.UUID, orderID int64) (*domain.Order, error) {
	return s.orders.FindByID(ctx, tenantID, orderID)
}

func (s *Service) GetStatusHistory(ctx context.Context, tenantID uuid.UUID, orderID int64) ([]*domain.StatusLog, error) {
	return s.orders.StatusHistory(ctx, tenantID, orderID)
}

// publish sends the post-commit event. A publish failure never fails the
// committed transition; consumers converge through their polling fallback.
func (s *Service) publish(ctx context.Context, kind interfaces.EventKind, order *domain.Order) {
	event := interfaces.Event{
		Kind:     kind,
		TenantID: order.TenantID,
		Order:    interfaces.Snapshot(order),
		At:       time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish event", "", map[string]interface{}{
			"kind":       string(kind),
			"order_code": order.Code,
		}, err)
	}
}
