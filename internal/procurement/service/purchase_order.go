package service

import (
	"context"
	"fmt"
	"time"

	invrepo "github.com/brewops/brewops-backend/internal/inventory/repository"
	invservice "github.com/brewops/brewops-backend/internal/inventory/service"
	"github.com/brewops/brewops-backend/internal/procurement/events"
	"github.com/brewops/brewops-backend/internal/procurement/repository"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// PurchaseOrderService manages purchase orders and goods receipt
type PurchaseOrderService struct {
	db        *database.DB
	poRepo    *repository.PurchaseOrderRepository
	itemRepo  *invrepo.ItemRepository
	ledger    *invservice.LedgerService
	publisher *events.ProcurementEventPublisher
	metrics   *metrics.Lifecycle
	logger    *logger.Logger
}

// NewPurchaseOrderService creates a new purchase order service
func NewPurchaseOrderService(
	db *database.DB,
	poRepo *repository.PurchaseOrderRepository,
	itemRepo *invrepo.ItemRepository,
	ledger *invservice.LedgerService,
	publisher *events.ProcurementEventPublisher,
	m *metrics.Lifecycle,
	log *logger.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		db:        db,
		poRepo:    poRepo,
		itemRepo:  itemRepo,
		ledger:    ledger,
		publisher: publisher,
		metrics:   m,
		logger:    log,
	}
}

// PurchaseOrderInput creates a purchase order
type PurchaseOrderInput struct {
	SupplierName string          `json:"supplier_name" validate:"required,max=200"`
	ExpectedDate *time.Time      `json:"expected_date,omitempty"`
	TaxRate      decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=1"`
	Notes        *string         `json:"notes,omitempty"`
	Lines        []LineInput     `json:"lines,omitempty" validate:"omitempty,dive"`
}

// LineInput is one purchase order line. Unit defaults to the item's unit.
type LineInput struct {
	ItemID          string          `json:"item_id" validate:"required"`
	QuantityOrdered decimal.Decimal `json:"quantity_ordered" validate:"gt=0"`
	Unit            string          `json:"unit,omitempty"`
	UnitCost        decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

// ReceiveLineInput books goods arriving against a line
type ReceiveLineInput struct {
	PurchaseOrderLineID string          `json:"purchase_order_line_id" validate:"required"`
	QuantityReceived    decimal.Decimal `json:"quantity_received"`
	LotNumber           string          `json:"lot_number" validate:"required,max=64"`
	Location            *string         `json:"location,omitempty"`
	ExpiryDate          *time.Time      `json:"expiry_date,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	ReceivedBy          *string         `json:"received_by,omitempty"`
}

// ReceiveResult names the lot created by a receipt and the order's status after it
type ReceiveResult struct {
	LotID     string                    `json:"lot_id"`
	NewStatus enums.PurchaseOrderStatus `json:"new_status"`
}

// Create creates a draft purchase order with an optional first set of lines
func (s *PurchaseOrderService) Create(ctx context.Context, in PurchaseOrderInput) (*repository.PurchaseOrder, error) {
	if in.TaxRate.IsNegative() {
		return nil, errors.Validation(map[string]string{"tax_rate": "must not be negative"})
	}

	var po *repository.PurchaseOrder
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		number, err := s.db.NextNumber(ctx, "purchase_orders", "po_number", "PO", time.Now().UTC())
		if err != nil {
			return err
		}

		po = &repository.PurchaseOrder{
			PONumber:     number,
			SupplierName: in.SupplierName,
			Status:       enums.PurchaseOrderStatusDraft,
			ExpectedDate: in.ExpectedDate,
			TaxRate:      in.TaxRate,
			Notes:        in.Notes,
		}
		if err := s.poRepo.Create(ctx, po); err != nil {
			return err
		}

		for _, li := range in.Lines {
			line, err := s.buildLine(ctx, po.ID, li)
			if err != nil {
				return err
			}
			if err := s.poRepo.CreateLine(ctx, line); err != nil {
				return err
			}
		}
		if len(in.Lines) == 0 {
			return nil
		}
		return s.recompute(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("purchase_order_id", po.ID).Str("po_number", po.PONumber).Msg("purchase order created")
	return po, nil
}

func (s *PurchaseOrderService) buildLine(ctx context.Context, poID string, in LineInput) (*repository.PurchaseOrderLine, error) {
	if !in.QuantityOrdered.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity_ordered": "must be greater than zero"})
	}
	if in.UnitCost.IsNegative() {
		return nil, errors.Validation(map[string]string{"unit_cost": "must not be negative"})
	}
	item, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	unit := in.Unit
	if unit == "" {
		unit = item.Unit
	}
	return &repository.PurchaseOrderLine{
		PurchaseOrderID:  poID,
		ItemID:           item.ID,
		QuantityOrdered:  in.QuantityOrdered,
		QuantityReceived: decimal.Zero,
		Unit:             unit,
		UnitCost:         in.UnitCost,
		LineTotal:        in.QuantityOrdered.Mul(in.UnitCost).Round(2),
	}, nil
}

// recompute reloads the lines of po, refreshes its money totals and writes the header
func (s *PurchaseOrderService) recompute(ctx context.Context, po *repository.PurchaseOrder) error {
	lines, err := s.poRepo.ListLines(ctx, po.ID)
	if err != nil {
		return err
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	po.Subtotal = subtotal
	po.Tax = subtotal.Mul(po.TaxRate).Round(2)
	po.Total = po.Subtotal.Add(po.Tax)
	po.Lines = lines
	return s.poRepo.Update(ctx, po)
}

// Get gets a purchase order with its lines
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*repository.PurchaseOrder, error) {
	po, err := s.poRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	po.Lines, err = s.poRepo.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return po, nil
}

// List lists one page of purchase orders and the number with status
func (s *PurchaseOrderService) List(ctx context.Context, status enums.PurchaseOrderStatus, page database.Page) ([]*repository.PurchaseOrder, int64, error) {
	if status != "" && !status.IsValid() {
		return nil, 0, errors.Validation(map[string]string{"status": fmt.Sprintf("unknown purchase order status %q", status)})
	}
	return s.poRepo.List(ctx, status, page)
}

// editDraft runs fn against a locked draft order and recomputes its totals
func (s *PurchaseOrderService) editDraft(ctx context.Context, poID string, fn func(ctx context.Context, po *repository.PurchaseOrder) error) (*repository.PurchaseOrder, error) {
	var po *repository.PurchaseOrder
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		po, err = s.poRepo.GetForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po.Status != enums.PurchaseOrderStatusDraft {
			return errors.InvalidState(fmt.Sprintf("purchase order %s is %s, lines can only change in draft", po.PONumber, po.Status))
		}
		if err := fn(ctx, po); err != nil {
			return err
		}
		return s.recompute(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *PurchaseOrderService) lineOf(ctx context.Context, po *repository.PurchaseOrder, lineID string) (*repository.PurchaseOrderLine, error) {
	line, err := s.poRepo.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.PurchaseOrderID != po.ID {
		return nil, errors.NotFound("purchase order line")
	}
	return line, nil
}

// AddLine adds a line to a draft order
func (s *PurchaseOrderService) AddLine(ctx context.Context, poID string, in LineInput) (*repository.PurchaseOrder, error) {
	return s.editDraft(ctx, poID, func(ctx context.Context, po *repository.PurchaseOrder) error {
		line, err := s.buildLine(ctx, po.ID, in)
		if err != nil {
			return err
		}
		return s.poRepo.CreateLine(ctx, line)
	})
}

// UpdateLine replaces a line of a draft order
func (s *PurchaseOrderService) UpdateLine(ctx context.Context, poID, lineID string, in LineInput) (*repository.PurchaseOrder, error) {
	return s.editDraft(ctx, poID, func(ctx context.Context, po *repository.PurchaseOrder) error {
		existing, err := s.lineOf(ctx, po, lineID)
		if err != nil {
			return err
		}
		line, err := s.buildLine(ctx, po.ID, in)
		if err != nil {
			return err
		}
		line.ID = existing.ID
		return s.poRepo.UpdateLine(ctx, line)
	})
}

// RemoveLine removes a line from a draft order
func (s *PurchaseOrderService) RemoveLine(ctx context.Context, poID, lineID string) (*repository.PurchaseOrder, error) {
	return s.editDraft(ctx, poID, func(ctx context.Context, po *repository.PurchaseOrder) error {
		if _, err := s.lineOf(ctx, po, lineID); err != nil {
			return err
		}
		return s.poRepo.DeleteLine(ctx, lineID)
	})
}

// Transition applies an explicit status change. Receiving statuses are only
// reached through ReceiveLine.
func (s *PurchaseOrderService) Transition(ctx context.Context, id string, to enums.PurchaseOrderStatus) (*repository.PurchaseOrder, error) {
	start := time.Now()

	var po *repository.PurchaseOrder
	var from enums.PurchaseOrderStatus
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		po, err = s.poRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = po.Status
		if !from.CanTransitionTo(to) {
			return errors.InvalidTransition("purchase order", from, to)
		}

		if to == enums.PurchaseOrderStatusSent {
			lines, err := s.poRepo.ListLines(ctx, po.ID)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return errors.GuardViolation(fmt.Sprintf("purchase order %s has no lines", po.PONumber))
			}
			if po.OrderDate == nil {
				today := time.Now().UTC().Truncate(24 * time.Hour)
				po.OrderDate = &today
			}
		}

		po.Status = to
		return s.poRepo.Update(ctx, po)
	})
	if err != nil {
		s.reject(id, "transition", err)
		return nil, err
	}

	s.announceTransition(ctx, po, from)
	s.metrics.ObserveDuration(metrics.AggregatePurchaseOrder, "transition", time.Since(start))
	return po, nil
}

func (s *PurchaseOrderService) announceTransition(ctx context.Context, po *repository.PurchaseOrder, from enums.PurchaseOrderStatus) {
	s.metrics.IncTransition(metrics.AggregatePurchaseOrder, from.String(), po.Status.String())
	s.publisher.PublishStatusChanged(ctx, po, from)
	s.logger.Info().
		Str("purchase_order_id", po.ID).
		Str("po_number", po.PONumber).
		Str("from", from.String()).
		Str("to", po.Status.String()).
		Msg("purchase order status changed")
}

func (s *PurchaseOrderService) reject(id, op string, err error) {
	if !errors.IsRejection(err) {
		return
	}
	s.metrics.IncRejection(metrics.AggregatePurchaseOrder, errors.CodeOf(err))
	s.logger.Warn().Err(err).Str("purchase_order_id", id).Str("operation", op).Msg("purchase order operation rejected")
}

// rejectReceipt is reject for ReceiveLine, which is addressed by line. The
// order id is empty when the line itself could not be read.
func (s *PurchaseOrderService) rejectReceipt(poID, lineID string, err error) {
	if !errors.IsRejection(err) {
		return
	}
	s.metrics.IncRejection(metrics.AggregatePurchaseOrder, errors.CodeOf(err))
	ev := s.logger.Warn().Err(err).Str("line_id", lineID).Str("operation", "receive")
	if poID != "" {
		ev = ev.Str("purchase_order_id", poID)
	}
	ev.Msg("purchase order operation rejected")
}

// ReceiveLine books goods against a purchase order line: the line's received
// quantity, a new lot with its received movement and the order status all
// change in one transaction.
func (s *PurchaseOrderService) ReceiveLine(ctx context.Context, in ReceiveLineInput) (*ReceiveResult, error) {
	var po *repository.PurchaseOrder
	var line *repository.PurchaseOrderLine
	var from enums.PurchaseOrderStatus
	var receipt *invservice.ReceiveLotResult
	var poID string
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.poRepo.GetLine(ctx, in.PurchaseOrderLineID)
		if err != nil {
			return err
		}
		poID = current.PurchaseOrderID

		// Order before line, the same order draft edits lock in.
		po, err = s.poRepo.GetForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		line, err = s.poRepo.GetLineForUpdate(ctx, current.ID)
		if err != nil {
			return err
		}
		if !in.QuantityReceived.IsPositive() {
			return errors.Validation(map[string]string{"quantity_received": "must be greater than zero"})
		}
		from = po.Status
		if !po.Status.IsOpen() {
			return errors.InvalidState(fmt.Sprintf("purchase order %s is %s and cannot receive goods", po.PONumber, po.Status))
		}
		remaining := line.Remaining()
		if in.QuantityReceived.GreaterThan(remaining) {
			return errors.OverReceipt(fmt.Sprintf("only %s %s remaining on line, cannot receive %s",
				remaining, line.Unit, in.QuantityReceived))
		}

		line.QuantityReceived = line.QuantityReceived.Add(in.QuantityReceived)
		if err := s.poRepo.SetReceived(ctx, line.ID, line.QuantityReceived); err != nil {
			return err
		}

		receipt, err = s.ledger.BookReceipt(ctx, invservice.ReceiveLotInput{
			ItemID:          line.ItemID,
			LotNumber:       in.LotNumber,
			Quantity:        in.QuantityReceived,
			Unit:            line.Unit,
			UnitCost:        line.UnitCost,
			ExpiryDate:      in.ExpiryDate,
			Location:        in.Location,
			Notes:           in.Notes,
			PurchaseOrderID: &po.ID,
			PerformedBy:     in.ReceivedBy,
		})
		if err != nil {
			return err
		}

		lines, err := s.poRepo.ListLines(ctx, po.ID)
		if err != nil {
			return err
		}
		po.Status = receivedStatus(po.Status, lines)
		return s.poRepo.Update(ctx, po)
	})
	if err != nil {
		s.rejectReceipt(poID, in.PurchaseOrderLineID, err)
		return nil, err
	}

	s.ledger.Announce(ctx, receipt.MovementResult)
	if po.Status != from {
		s.announceTransition(ctx, po, from)
	}
	s.publisher.PublishLineReceived(ctx, po, line, receipt.Lot.ID, in.QuantityReceived)
	s.logger.Info().
		Str("purchase_order_id", po.ID).
		Str("line_id", line.ID).
		Str("lot_id", receipt.Lot.ID).
		Str("quantity", in.QuantityReceived.String()).
		Msg("purchase order line received")

	return &ReceiveResult{LotID: receipt.Lot.ID, NewStatus: po.Status}, nil
}

// receivedStatus derives the order status from its lines after a receipt
func receivedStatus(current enums.PurchaseOrderStatus, lines []*repository.PurchaseOrderLine) enums.PurchaseOrderStatus {
	all, some := len(lines) > 0, false
	for _, l := range lines {
		if l.QuantityReceived.LessThan(l.QuantityOrdered) {
			all = false
		}
		if l.QuantityReceived.IsPositive() {
			some = true
		}
	}
	switch {
	case all:
		return enums.PurchaseOrderStatusReceived
	case some:
		return enums.PurchaseOrderStatusPartiallyReceived
	default:
		return current
	}
}
