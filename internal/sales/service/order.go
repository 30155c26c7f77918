package service

import (
	"context"
	"fmt"
	"time"

	brewrepo "github.com/brewops/brewops-backend/internal/brewing/repository"
	"github.com/brewops/brewops-backend/internal/sales/events"
	"github.com/brewops/brewops-backend/internal/sales/repository"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// OrderService runs the sales order lifecycle against finished goods stock
type OrderService struct {
	db         *database.DB
	orderRepo  *repository.OrderRepository
	fgRepo     *repository.FinishedGoodsRepository
	recipeRepo *brewrepo.RecipeRepository
	publisher  *events.SalesEventPublisher
	metrics    *metrics.Lifecycle
	logger     *logger.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	db *database.DB,
	orderRepo *repository.OrderRepository,
	fgRepo *repository.FinishedGoodsRepository,
	recipeRepo *brewrepo.RecipeRepository,
	publisher *events.SalesEventPublisher,
	m *metrics.Lifecycle,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		db:         db,
		orderRepo:  orderRepo,
		fgRepo:     fgRepo,
		recipeRepo: recipeRepo,
		publisher:  publisher,
		metrics:    m,
		logger:     log,
	}
}

// OrderInput creates a sales order
type OrderInput struct {
	CustomerName string           `json:"customer_name" validate:"required,max=200"`
	DeliveryDate *time.Time       `json:"delivery_date,omitempty"`
	TaxRate      decimal.Decimal  `json:"tax_rate" validate:"gte=0,lte=1"`
	Notes        *string          `json:"notes,omitempty"`
	Lines        []OrderLineInput `json:"lines,omitempty" validate:"omitempty,dive"`
}

// OrderLineInput is one order line. When only a finished goods row is given,
// the line takes its recipe and format from it.
type OrderLineInput struct {
	RecipeID        *string         `json:"recipe_id,omitempty"`
	Format          *string         `json:"format,omitempty" validate:"omitempty,max=32"`
	Description     *string         `json:"description,omitempty"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"gte=0"`
	FinishedGoodsID *string         `json:"finished_goods_id,omitempty"`
}

// Create creates a draft order dated today
func (s *OrderService) Create(ctx context.Context, in OrderInput) (*repository.Order, error) {
	if in.TaxRate.IsNegative() {
		return nil, errors.Validation(map[string]string{"tax_rate": "must not be negative"})
	}

	var o *repository.Order
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		number, err := s.db.NextNumber(ctx, "orders", "order_number", "SO", now)
		if err != nil {
			return err
		}

		o = &repository.Order{
			OrderNumber:  number,
			CustomerName: in.CustomerName,
			Status:       enums.OrderStatusDraft,
			OrderDate:    now.Truncate(24 * time.Hour),
			DeliveryDate: in.DeliveryDate,
			TaxRate:      in.TaxRate,
			Notes:        in.Notes,
		}
		if err := s.orderRepo.Create(ctx, o); err != nil {
			return err
		}

		for _, li := range in.Lines {
			line, err := s.buildLine(ctx, o, li)
			if err != nil {
				return err
			}
			if err := s.orderRepo.CreateLine(ctx, line); err != nil {
				return err
			}
		}
		if len(in.Lines) == 0 {
			return nil
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", o.ID).Str("order_number", o.OrderNumber).Msg("order created")
	return o, nil
}

func (s *OrderService) buildLine(ctx context.Context, o *repository.Order, in OrderLineInput) (*repository.OrderLine, error) {
	if in.Quantity <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}
	if in.UnitPrice.IsNegative() {
		return nil, errors.Validation(map[string]string{"unit_price": "must not be negative"})
	}

	line := &repository.OrderLine{
		OrderID:         o.ID,
		RecipeID:        in.RecipeID,
		Format:          in.Format,
		Description:     in.Description,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		LineTotal:       in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
		FinishedGoodsID: in.FinishedGoodsID,
	}

	if in.FinishedGoodsID != nil {
		fg, err := s.fgRepo.GetByID(ctx, *in.FinishedGoodsID)
		if err != nil {
			return nil, err
		}
		if line.RecipeID == nil {
			line.RecipeID = &fg.RecipeID
		}
		if line.Format == nil {
			line.Format = &fg.Format
		}
		if *line.RecipeID != fg.RecipeID || *line.Format != fg.Format {
			return nil, errors.Validation(map[string]string{
				"finished_goods_id": "finished goods do not match the line's recipe and format",
			})
		}
	}
	if line.RecipeID != nil {
		if _, err := s.recipeRepo.GetByID(ctx, *line.RecipeID); err != nil {
			return nil, err
		}
	}

	// Confirmed orders already passed the confirmation guard; new lines must keep it true.
	if o.Status == enums.OrderStatusConfirmed && (line.RecipeID == nil || line.Format == nil) {
		return nil, errors.GuardViolation(fmt.Sprintf("order %s is confirmed, lines need a recipe and format", o.OrderNumber))
	}
	return line, nil
}

// recompute reloads the lines of o, refreshes its money totals and writes the header
func (s *OrderService) recompute(ctx context.Context, o *repository.Order) error {
	lines, err := s.orderRepo.ListLines(ctx, o.ID)
	if err != nil {
		return err
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(o.TaxRate).Round(2)
	o.Total = o.Subtotal.Add(o.Tax)
	o.Lines = lines
	return s.orderRepo.Update(ctx, o)
}

// Get gets an order with its lines
func (s *OrderService) Get(ctx context.Context, id string) (*repository.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines, err = s.orderRepo.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// List lists one page of orders and the number with status
func (s *OrderService) List(ctx context.Context, status enums.OrderStatus, page database.Page) ([]*repository.Order, int64, error) {
	if status != "" && !status.IsValid() {
		return nil, 0, errors.Validation(map[string]string{"status": fmt.Sprintf("unknown order status %q", status)})
	}
	return s.orderRepo.List(ctx, status, page)
}

// editLines runs fn against a locked editable order and recomputes its totals
func (s *OrderService) editLines(ctx context.Context, orderID string, fn func(ctx context.Context, o *repository.Order) error) (*repository.Order, error) {
	var o *repository.Order
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orderRepo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.IsEditable() {
			return errors.InvalidState(fmt.Sprintf("order %s is %s, lines can only change in draft or confirmed", o.OrderNumber, o.Status))
		}
		if err := fn(ctx, o); err != nil {
			return err
		}
		return s.recompute(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) lineOf(ctx context.Context, o *repository.Order, lineID string) (*repository.OrderLine, error) {
	line, err := s.orderRepo.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.OrderID != o.ID {
		return nil, errors.NotFound("order line")
	}
	return line, nil
}

// AddLine adds a line to a draft or confirmed order
func (s *OrderService) AddLine(ctx context.Context, orderID string, in OrderLineInput) (*repository.Order, error) {
	return s.editLines(ctx, orderID, func(ctx context.Context, o *repository.Order) error {
		line, err := s.buildLine(ctx, o, in)
		if err != nil {
			return err
		}
		return s.orderRepo.CreateLine(ctx, line)
	})
}

// UpdateLine replaces a line of a draft or confirmed order
func (s *OrderService) UpdateLine(ctx context.Context, orderID, lineID string, in OrderLineInput) (*repository.Order, error) {
	return s.editLines(ctx, orderID, func(ctx context.Context, o *repository.Order) error {
		existing, err := s.lineOf(ctx, o, lineID)
		if err != nil {
			return err
		}
		line, err := s.buildLine(ctx, o, in)
		if err != nil {
			return err
		}
		line.ID = existing.ID
		return s.orderRepo.UpdateLine(ctx, line)
	})
}

// RemoveLine removes a line. A confirmed order keeps at least one line.
func (s *OrderService) RemoveLine(ctx context.Context, orderID, lineID string) (*repository.Order, error) {
	return s.editLines(ctx, orderID, func(ctx context.Context, o *repository.Order) error {
		if _, err := s.lineOf(ctx, o, lineID); err != nil {
			return err
		}
		if o.Status == enums.OrderStatusConfirmed {
			lines, err := s.orderRepo.ListLines(ctx, o.ID)
			if err != nil {
				return err
			}
			if len(lines) == 1 {
				return errors.GuardViolation(fmt.Sprintf("order %s is confirmed and must keep at least one line", o.OrderNumber))
			}
		}
		return s.orderRepo.DeleteLine(ctx, lineID)
	})
}

// Transition applies a status change with its guards and stock side effects
// in one transaction. Every guard runs before the first write.
func (s *OrderService) Transition(ctx context.Context, id string, to enums.OrderStatus) (*repository.Order, error) {
	start := time.Now()

	var o *repository.Order
	var from enums.OrderStatus
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orderRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = o.Status
		if !from.CanTransitionTo(to) {
			return errors.InvalidTransition("order", from, to)
		}

		lines, err := s.orderRepo.ListLines(ctx, o.ID)
		if err != nil {
			return err
		}

		stock := newStockPlan(s.fgRepo)
		switch {
		case to == enums.OrderStatusConfirmed:
			if err := checkConfirmable(o, lines); err != nil {
				return err
			}
		case from == enums.OrderStatusConfirmed && (to == enums.OrderStatusPicking || to == enums.OrderStatusDispatched):
			if err := stock.checkAvailable(ctx, lines); err != nil {
				return err
			}
		case from == enums.OrderStatusPicking && (to == enums.OrderStatusDispatched || to == enums.OrderStatusCancelled):
			if err := stock.load(ctx, lines); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		switch to {
		case enums.OrderStatusPicking:
			stock.reserve(lines)
		case enums.OrderStatusDispatched:
			stock.ship(lines, from == enums.OrderStatusPicking)
			o.DispatchedAt = &now
		case enums.OrderStatusDelivered:
			o.DeliveredAt = &now
		case enums.OrderStatusInvoiced:
			number, err := s.db.NextNumber(ctx, "orders", "invoice_number", "INV", now)
			if err != nil {
				return err
			}
			o.InvoiceNumber = &number
			o.InvoicedAt = &now
		case enums.OrderStatusPaid:
			o.PaidAt = &now
		case enums.OrderStatusCancelled:
			if from == enums.OrderStatusPicking {
				stock.release(lines)
			}
		}
		if err := stock.save(ctx); err != nil {
			return err
		}

		o.Status = to
		o.Lines = lines
		return s.orderRepo.Update(ctx, o)
	})
	if err != nil {
		s.reject(id, "transition", err)
		return nil, err
	}

	s.metrics.IncTransition(metrics.AggregateOrder, from.String(), to.String())
	s.metrics.ObserveDuration(metrics.AggregateOrder, "transition", time.Since(start))
	s.publisher.PublishStatusChanged(ctx, o, from)
	s.logger.Info().
		Str("order_id", o.ID).
		Str("order_number", o.OrderNumber).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("order status changed")

	return o, nil
}

func (s *OrderService) reject(id, op string, err error) {
	if !errors.IsRejection(err) {
		return
	}
	s.metrics.IncRejection(metrics.AggregateOrder, errors.CodeOf(err))
	s.logger.Warn().Err(err).Str("order_id", id).Str("operation", op).Msg("order operation rejected")
}

func checkConfirmable(o *repository.Order, lines []*repository.OrderLine) error {
	if len(lines) == 0 {
		return errors.GuardViolation(fmt.Sprintf("order %s has no lines", o.OrderNumber))
	}
	for i, l := range lines {
		if l.RecipeID == nil || l.Format == nil {
			return errors.GuardViolation(fmt.Sprintf("line %d of order %s has no recipe and format", i+1, o.OrderNumber))
		}
	}
	if o.DeliveryDate == nil {
		return errors.GuardViolation(fmt.Sprintf("order %s has no delivery date", o.OrderNumber))
	}
	return nil
}
