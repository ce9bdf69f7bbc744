package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/smartcanteen/canteen-backend/internal/inventory"
	"github.com/smartcanteen/canteen-backend/internal/notifications"
	"github.com/smartcanteen/canteen-backend/internal/users"
	dbpkg "github.com/smartcanteen/canteen-backend/pkg/db"
	"github.com/smartcanteen/canteen-backend/pkg/db/models"
	"github.com/smartcanteen/canteen-backend/pkg/enums"
	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
	"github.com/smartcanteen/canteen-backend/pkg/metrics"
	"github.com/smartcanteen/canteen-backend/pkg/outbox"
	"github.com/smartcanteen/canteen-backend/pkg/outbox/payloads"
	"github.com/smartcanteen/canteen-backend/pkg/pagination"
)

const defaultExpireBatch = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type identityLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.Identity, error)
	StaffRecipients(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
}

type menuLookup interface {
	GetMenuItemTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.MenuItem, error)
}

type stockGuard interface {
	ReserveAll(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
	ReleaseAll(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
	Lookup(ctx context.Context, tx *gorm.DB, menuItemID uuid.UUID) (*models.Inventory, error)
}

type paymentReader interface {
	Latest(ctx context.Context, orderID uuid.UUID, status *enums.PaymentStatus) (*models.Payment, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo          Repository
	TxRunner      txRunner
	Users         identityLookup
	Catalog       menuLookup
	Inventory     stockGuard
	Notifications notifications.Sink
	Payments      paymentReader
	Outbox        outbox.Emitter
	Metrics       *metrics.OrderMetrics
	Logger        *logger.Logger
}

// Service is the only entry point the API layer uses for orders. Every
// mutation runs in one transaction: stock, order rows, notifications and
// outbox events commit or roll back together.
type Service struct {
	repo     Repository
	tx       txRunner
	users    identityLookup
	catalog  menuLookup
	guard    stockGuard
	notify   notifications.Sink
	payments paymentReader
	outbox   outbox.Emitter
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Users == nil:
		return nil, fmt.Errorf("identity lookup required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory guard required")
	case params.Notifications == nil:
		return nil, fmt.Errorf("notification sink required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment reader required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		users:    params.Users,
		catalog:  params.Catalog,
		guard:    params.Inventory,
		notify:   params.Notifications,
		payments: params.Payments,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// PlaceOrder reserves stock for every line and persists the order in pending.
func (s *Service) PlaceOrder(ctx context.Context, actorID uuid.UUID, input PlaceOrderInput) (order *models.Order, err error) {
	start := s.now()
	defer func() {
		s.metrics.ObservePlaced(resultLabel(err), s.now().Sub(start))
	}()

	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	pickup, err := validatePlaceOrder(input)
	if err != nil {
		return nil, err
	}

	lines := make([]inventory.Line, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, inventory.Line{MenuItemID: l.MenuItemID, Quantity: l.Quantity})
	}

	var lowStock []models.Inventory
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			menuItem, err := s.catalog.GetMenuItemTx(ctx, tx, line.MenuItemID)
			if err != nil {
				return err
			}
			if !menuItem.Availability {
				return pkgerrors.New(pkgerrors.CodeValidation, "menu item is not available").
					WithDetails(map[string]any{"menu_item_id": menuItem.ID})
			}
			items = append(items, models.OrderItem{
				MenuItemID: menuItem.ID,
				Quantity:   line.Quantity,
				Subtotal:   Subtotal(menuItem.Price, line.Quantity),
			})
		}

		if err := s.guard.ReserveAll(ctx, tx, lines); err != nil {
			return err
		}

		now := s.now().UTC()
		ownerID := actor.ID
		order = &models.Order{
			UserID:     &ownerID,
			Status:     enums.OrderStatusPending,
			TotalPrice: RecomputeTotal(items),
			OrderDate:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			PickupTime: pickup,
			Items:      items,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := VerifyTotal(order); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := s.emitPlaced(ctx, tx, actor, order); err != nil {
			return err
		}

		low, err := s.checkLowStock(ctx, tx, lines)
		if err != nil {
			return err
		}
		lowStock = low
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err, "place order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":     actor.ID.String(),
		"total_price": order.TotalPrice.StringFixed(2),
		"items":       len(order.Items),
	})
	s.logg.Info(ctx, "order.placed")
	for _, inv := range lowStock {
		s.metrics.IncLowStock()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"menu_item_id": inv.MenuItemID.String(),
			"stock_level":  inv.StockLevel,
			"threshold":    inv.Threshold,
		}), "inventory.low_stock")
	}
	return order, nil
}

// ChangeOrderStatus moves the order to the requested status when both the
// state machine and the access policy allow it.
func (s *Service) ChangeOrderStatus(ctx context.Context, actorID, orderID uuid.UUID, to enums.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", to))
	}
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var (
		order *models.Order
		from  enums.OrderStatus
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		order = loaded
		from = order.Status

		if !MayTransition(*actor, order, to) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this order")
		}
		if !CanTransition(from, to) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status change not allowed").
				WithDetails(map[string]any{"from": from, "to": to})
		}
		if err := VerifyTotal(order); err != nil {
			return err
		}

		msg := fmt.Sprintf("Your order %s is now %s.", shortID(order.ID), to)
		return s.transition(ctx, tx, order, to, actor, msg)
	})
	if err != nil {
		return nil, s.fail(s.logg.WithOrderID(ctx, orderID.String()), err, "change order status")
	}

	s.metrics.IncTransition(string(from), string(to))
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithActorRole(ctx, string(actor.Role))
	ctx = s.logg.WithFields(ctx, map[string]any{"from": string(from), "to": string(to)})
	s.logg.Info(ctx, "order.status_changed")
	return order, nil
}

// CancelOrder is ChangeOrderStatus to cancelled; reserved stock is returned.
func (s *Service) CancelOrder(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	return s.ChangeOrderStatus(ctx, actorID, orderID, enums.OrderStatusCancelled)
}

func (s *Service) GetOrder(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if !CanAccessOrder(*actor, order, ActionRead) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this order")
	}
	return order, nil
}

// ListOrdersFor pages through every order for staff and admins and through
// the caller's own orders otherwise, newest first.
func (s *Service) ListOrdersFor(ctx context.Context, actorID uuid.UUID, params ListParams) (pagination.Page[models.Order], error) {
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return pagination.Page[models.Order]{}, err
	}
	if params.Status != nil && !params.Status.IsValid() {
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	filter := listFilter{
		Status: params.Status,
		Cursor: cursor,
		Limit:  pagination.LimitWithBuffer(params.Limit),
	}
	if !actor.IsStaff() {
		owner := actor.ID
		filter.UserID = &owner
	}
	rows, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// LatestPayment returns the newest payment of an order the caller may read.
func (s *Service) LatestPayment(ctx context.Context, actorID, orderID uuid.UUID, status *enums.PaymentStatus) (*models.Payment, error) {
	if _, err := s.GetOrder(ctx, actorID, orderID); err != nil {
		return nil, err
	}
	return s.payments.Latest(ctx, orderID, status)
}

// ExpirePending cancels orders still pending that were created before cutoff
// and returns their stock. Each order commits in its own transaction so one
// failure does not hold back the rest.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultExpireBatch
	}
	rows, err := s.repo.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale pending orders")
	}
	expired := 0
	var errs error
	for _, row := range rows {
		ok, err := s.expireOne(ctx, row.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", row.ID, err))
			continue
		}
		if ok {
			expired++
			s.metrics.IncTransition(string(enums.OrderStatusPending), string(enums.OrderStatusCancelled))
		}
	}
	return expired, errs
}

func (s *Service) expireOne(ctx context.Context, orderID uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		msg := fmt.Sprintf("Your order %s was cancelled because it was not confirmed in time.", shortID(order.ID))
		if err := s.transition(ctx, tx, order, enums.OrderStatusCancelled, nil, msg); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, s.fail(s.logg.WithOrderID(ctx, orderID.String()), err, "expire order")
	}
	if expired {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order.expired")
	}
	return expired, nil
}

// transition persists an already-authorized move of a locked order. A nil
// actor marks a system change. Cancelling returns every line's stock.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor *users.Identity, message string) error {
	from := order.Status
	if to == enums.OrderStatusCancelled {
		if err := s.guard.ReleaseAll(ctx, tx, linesOf(order.Items)); err != nil {
			return err
		}
	}

	now := s.now().UTC()
	updated, err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, from, to, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeBusy, "order changed concurrently")
	}
	order.Status = to
	order.UpdatedAt = now

	if order.UserID != nil {
		if _, err := s.notify.Notify(ctx, tx, *order.UserID, message); err != nil {
			return err
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID: order.ID,
			UserID:  order.UserID,
			From:    from,
			To:      to,
		},
	})
}

func (s *Service) emitPlaced(ctx context.Context, tx *gorm.DB, actor *users.Identity, order *models.Order) error {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal,
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderPlacedEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			TotalPrice: order.TotalPrice,
			PickupTime: order.PickupTime,
			Items:      lines,
		},
	})
}

// checkLowStock alerts staff about items this reservation pushed below their
// threshold. Items that were already below it stay quiet.
func (s *Service) checkLowStock(ctx context.Context, tx *gorm.DB, lines []inventory.Line) ([]models.Inventory, error) {
	reserved := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		reserved[line.MenuItemID] += line.Quantity
	}

	var (
		low   []models.Inventory
		staff []uuid.UUID
	)
	for _, line := range inventory.SortLines(lines) {
		qty, ok := reserved[line.MenuItemID]
		if !ok {
			continue
		}
		delete(reserved, line.MenuItemID)

		inv, err := s.guard.Lookup(ctx, tx, line.MenuItemID)
		if err != nil {
			return nil, err
		}
		if inv.StockLevel >= inv.Threshold || inv.StockLevel+qty < inv.Threshold {
			continue
		}
		low = append(low, *inv)

		if staff == nil {
			if staff, err = s.users.StaffRecipients(ctx, tx); err != nil {
				return nil, err
			}
		}
		msg := fmt.Sprintf("Low stock: menu item %s has %d left (threshold %d).", shortID(inv.MenuItemID), inv.StockLevel, inv.Threshold)
		for _, staffID := range staff {
			if _, err := s.notify.Notify(ctx, tx, staffID, msg); err != nil {
				return nil, err
			}
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryLowStock,
			AggregateType: enums.AggregateMenuItem,
			AggregateID:   inv.MenuItemID,
			Data: payloads.InventoryLowStockEvent{
				MenuItemID: inv.MenuItemID,
				StockLevel: inv.StockLevel,
				Threshold:  inv.Threshold,
			},
		})
		if err != nil {
			return nil, err
		}
	}
	return low, nil
}

// fail normalizes err into a typed error and logs invariant violations. A
// cancelled or expired context is the caller going away, not a server fault.
func (s *Service) fail(ctx context.Context, err error, op string) error {
	typed := pkgerrors.As(err)
	switch {
	case pkgerrors.IsCanceled(err):
		err = pkgerrors.Wrap(pkgerrors.CodeCanceled, err, op)
	case typed == nil && dbpkg.IsLockContention(err):
		err = pkgerrors.Wrap(pkgerrors.CodeBusy, err, op)
	case typed == nil:
		err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
	}
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeInconsistent, pkgerrors.CodeInternal:
		s.logg.Error(ctx, op+" failed", err)
	case pkgerrors.CodeBusy:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), op+" busy")
	case pkgerrors.CodeCanceled:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), op+" canceled")
	}
	return err
}

func validatePlaceOrder(input PlaceOrderInput) (*string, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyOrder, "order has no line items")
	}
	for i, line := range input.Lines {
		if line.MenuItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required").
				WithDetails(map[string]any{"line": i})
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"line": i, "menu_item_id": line.MenuItemID})
		}
	}
	return normalizePickupTime(input.PickupTime)
}

func normalizePickupTime(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			out := t.Format("15:04:05")
			return &out, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup_time must be HH:MM or HH:MM:SS")
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if dbpkg.IsLockContention(err) {
		return pkgerrors.Wrap(pkgerrors.CodeBusy, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func actorRef(actor *users.Identity) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)}
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultSuccess
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return metrics.ResultFailure
}
