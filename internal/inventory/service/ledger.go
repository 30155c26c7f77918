package service

import (
	"context"
	"fmt"
	"time"

	"github.com/brewops/brewops-backend/internal/inventory/events"
	"github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/enums"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// LedgerService owns every change to lot quantities. A lot's on-hand
// quantity is only written together with the movement that explains it.
type LedgerService struct {
	db           *database.DB
	itemRepo     *repository.ItemRepository
	lotRepo      *repository.LotRepository
	movementRepo *repository.MovementRepository
	publisher    *events.InventoryEventPublisher
	metrics      *metrics.Lifecycle
	logger       *logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	db *database.DB,
	itemRepo *repository.ItemRepository,
	lotRepo *repository.LotRepository,
	movementRepo *repository.MovementRepository,
	publisher *events.InventoryEventPublisher,
	m *metrics.Lifecycle,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		db:           db,
		itemRepo:     itemRepo,
		lotRepo:      lotRepo,
		movementRepo: movementRepo,
		publisher:    publisher,
		metrics:      m,
		logger:       log,
	}
}

// MovementInput describes one ledger entry. Quantity is signed: received
// must be positive, consumed and written_off negative, the rest either way.
type MovementInput struct {
	LotID         string             `json:"lot_id" validate:"required"`
	MovementType  enums.MovementType `json:"movement_type" validate:"required"`
	Quantity      decimal.Decimal    `json:"quantity"`
	ReferenceType *string            `json:"reference_type,omitempty"`
	ReferenceID   *string            `json:"reference_id,omitempty"`
	Reason        *string            `json:"reason,omitempty"`
	PerformedBy   *string            `json:"performed_by,omitempty"`
}

// MovementResult is a written movement and the lot quantity it produced
type MovementResult struct {
	Movement  *repository.StockMovement `json:"movement"`
	NewOnHand decimal.Decimal           `json:"new_on_hand"`
}

// ReceiveLotInput describes goods arriving into a new lot
type ReceiveLotInput struct {
	ItemID          string          `json:"item_id" validate:"required"`
	LotNumber       string          `json:"lot_number" validate:"required,max=64"`
	Quantity        decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit            string          `json:"unit,omitempty"`
	UnitCost        decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	ReceivedDate    *time.Time      `json:"received_date,omitempty"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	Location        *string         `json:"location,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	PurchaseOrderID *string         `json:"-"`
	PerformedBy     *string         `json:"performed_by,omitempty"`
}

// ReceiveLotResult is the lot created by a receipt and its opening movement
type ReceiveLotResult struct {
	Lot *repository.InventoryLot `json:"lot"`
	*MovementResult
}

// RecordMovement writes a movement and applies it to its lot in its own
// transaction, then announces it. A ctx that already carries a transaction
// is refused; use ApplyMovement there.
func (s *LedgerService) RecordMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	var res *MovementResult
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.apply(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Announce(ctx, res)
	return res, nil
}

// ApplyMovement writes a movement inside the transaction carried by ctx.
// Nothing is announced: the caller hands the result to Announce once its
// transaction has committed.
func (s *LedgerService) ApplyMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if !s.db.InTransaction(ctx) {
		return nil, database.ErrNoTransaction
	}
	return s.apply(ctx, in)
}

func (s *LedgerService) apply(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if !in.MovementType.IsValid() {
		return nil, errors.Validation(map[string]string{"movement_type": fmt.Sprintf("unknown movement type %q", in.MovementType)})
	}
	if err := checkSign(in.MovementType, in.Quantity); err != nil {
		return nil, err
	}

	lot, err := s.lotRepo.GetForUpdate(ctx, in.LotID)
	if err != nil {
		return nil, err
	}

	newOnHand := lot.QuantityOnHand.Add(in.Quantity)
	if newOnHand.IsNegative() {
		return nil, errors.InvariantViolation(fmt.Sprintf(
			"lot %s holds %s %s, cannot apply %s", lot.LotNumber, lot.QuantityOnHand, lot.Unit, in.Quantity,
		))
	}

	movement := &repository.StockMovement{
		LotID:         lot.ID,
		ItemID:        lot.ItemID,
		MovementType:  in.MovementType,
		Quantity:      in.Quantity,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Reason:        in.Reason,
		PerformedBy:   in.PerformedBy,
	}
	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, err
	}
	if err := s.lotRepo.SetQuantity(ctx, lot.ID, newOnHand); err != nil {
		return nil, err
	}

	return &MovementResult{Movement: movement, NewOnHand: newOnHand}, nil
}

func checkSign(t enums.MovementType, qty decimal.Decimal) error {
	if qty.IsZero() {
		return errors.Validation(map[string]string{"quantity": "must not be zero"})
	}
	switch t.Sign() {
	case 1:
		if qty.IsNegative() {
			return errors.Validation(map[string]string{"quantity": fmt.Sprintf("%s movements must be positive", t)})
		}
	case -1:
		if qty.IsPositive() {
			return errors.Validation(map[string]string{"quantity": fmt.Sprintf("%s movements must be negative", t)})
		}
	}
	return nil
}

// Announce publishes and counts a committed movement
func (s *LedgerService) Announce(ctx context.Context, res *MovementResult) {
	if res == nil {
		return
	}
	s.metrics.IncMovement(res.Movement.MovementType.String())
	s.publisher.PublishMovementRecorded(ctx, res.Movement, res.NewOnHand)
	s.logger.Debug().
		Str("lot_id", res.Movement.LotID).
		Str("movement_type", res.Movement.MovementType.String()).
		Str("quantity", res.Movement.Quantity.String()).
		Str("new_on_hand", res.NewOnHand.String()).
		Msg("stock movement recorded")
}

// ReceiveLot creates a lot for goods that arrived and books the quantity
// into it with a received movement, in its own transaction.
func (s *LedgerService) ReceiveLot(ctx context.Context, in ReceiveLotInput) (*ReceiveLotResult, error) {
	var result *ReceiveLotResult
	err := s.db.Transaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.receive(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Announce(ctx, result.MovementResult)
	return result, nil
}

// BookReceipt is ReceiveLot inside the transaction carried by ctx. The
// caller announces result.MovementResult after committing.
func (s *LedgerService) BookReceipt(ctx context.Context, in ReceiveLotInput) (*ReceiveLotResult, error) {
	if !s.db.InTransaction(ctx) {
		return nil, database.ErrNoTransaction
	}
	return s.receive(ctx, in)
}

func (s *LedgerService) receive(ctx context.Context, in ReceiveLotInput) (*ReceiveLotResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}
	if in.LotNumber == "" {
		return nil, errors.Validation(map[string]string{"lot_number": "this field is required"})
	}

	item, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	receivedDate := time.Now().UTC().Truncate(24 * time.Hour)
	if in.ReceivedDate != nil {
		receivedDate = *in.ReceivedDate
	}
	unit := in.Unit
	if unit == "" {
		unit = item.Unit
	}

	lot := &repository.InventoryLot{
		ItemID:          item.ID,
		LotNumber:       in.LotNumber,
		QuantityOnHand:  decimal.Zero,
		Unit:            unit,
		UnitCost:        in.UnitCost,
		ReceivedDate:    receivedDate,
		ExpiryDate:      in.ExpiryDate,
		Location:        in.Location,
		PurchaseOrderID: in.PurchaseOrderID,
		Notes:           in.Notes,
	}
	if err := s.lotRepo.Create(ctx, lot); err != nil {
		return nil, err
	}

	mv := MovementInput{
		LotID:        lot.ID,
		MovementType: enums.MovementTypeReceived,
		Quantity:     in.Quantity,
		PerformedBy:  in.PerformedBy,
	}
	if in.PurchaseOrderID != nil {
		ref := repository.ReferencePurchaseOrder
		mv.ReferenceType = &ref
		mv.ReferenceID = in.PurchaseOrderID
	}
	res, err := s.apply(ctx, mv)
	if err != nil {
		return nil, err
	}

	lot.QuantityOnHand = res.NewOnHand
	return &ReceiveLotResult{Lot: lot, MovementResult: res}, nil
}

// GetLot gets a lot by ID
func (s *LedgerService) GetLot(ctx context.Context, id string) (*repository.InventoryLot, error) {
	return s.lotRepo.GetByID(ctx, id)
}

// ListLots lists an item's lots; empty lots are skipped unless includeEmpty is set
func (s *LedgerService) ListLots(ctx context.Context, itemID string, includeEmpty bool) ([]*repository.InventoryLot, error) {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.lotRepo.ListByItem(ctx, itemID, includeEmpty)
}

// ListMovements lists one page of ledger entries and the number matching filter
func (s *LedgerService) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*repository.StockMovement, int64, error) {
	return s.movementRepo.List(ctx, filter)
}

// Reconciliation compares a lot's stored quantity with its movement total
type Reconciliation struct {
	LotID          string          `json:"lot_id"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	MovementTotal  decimal.Decimal `json:"movement_total"`
	Balanced       bool            `json:"balanced"`
}

// ReconcileLot checks the ledger invariant for one lot
func (s *LedgerService) ReconcileLot(ctx context.Context, lotID string) (*Reconciliation, error) {
	lot, err := s.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	total, err := s.movementRepo.SumByLot(ctx, lotID)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		LotID:          lot.ID,
		QuantityOnHand: lot.QuantityOnHand,
		MovementTotal:  total,
		Balanced:       lot.QuantityOnHand.Equal(total),
	}
	if !rec.Balanced {
		s.logger.Warn().
			Str("lot_id", lot.ID).
			Str("on_hand", lot.QuantityOnHand.String()).
			Str("movement_total", total.String()).
			Msg("lot quantity does not match its movements")
	}
	return rec, nil
}
