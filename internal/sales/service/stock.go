package service

import (
	"context"
	"fmt"

	"github.com/brewops/brewops-backend/internal/sales/repository"
	"github.com/brewops/brewops-backend/pkg/errors"
)

// stockPlan holds the finished goods rows touched by one transition. Rows are
// locked as they are loaded and written back together by save.
type stockPlan struct {
	repo  *repository.FinishedGoodsRepository
	rows  map[string]*repository.FinishedGoods
	order []string
	dirty map[string]bool
}

func newStockPlan(repo *repository.FinishedGoodsRepository) *stockPlan {
	return &stockPlan{
		repo:  repo,
		rows:  make(map[string]*repository.FinishedGoods),
		dirty: make(map[string]bool),
	}
}

func (p *stockPlan) get(ctx context.Context, id string) (*repository.FinishedGoods, error) {
	if fg, ok := p.rows[id]; ok {
		return fg, nil
	}
	fg, err := p.repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	p.rows[id] = fg
	p.order = append(p.order, id)
	return fg, nil
}

// load locks the rows linked to lines
func (p *stockPlan) load(ctx context.Context, lines []*repository.OrderLine) error {
	for _, l := range lines {
		if l.FinishedGoodsID == nil {
			continue
		}
		if _, err := p.get(ctx, *l.FinishedGoodsID); err != nil {
			return err
		}
	}
	return nil
}

// checkAvailable requires every line to be linked to stock that can cover it.
// Lines sharing a row are checked against their combined quantity.
func (p *stockPlan) checkAvailable(ctx context.Context, lines []*repository.OrderLine) error {
	demand := make(map[string]int)
	for i, l := range lines {
		if l.FinishedGoodsID == nil {
			return errors.InsufficientStock(fmt.Sprintf("line %d is not linked to finished goods", i+1))
		}
		fg, err := p.get(ctx, *l.FinishedGoodsID)
		if err != nil {
			return err
		}
		left := fg.Available() - demand[fg.ID]
		if l.Quantity > left {
			return errors.InsufficientStock(fmt.Sprintf("line %d needs %d %s, only %d available",
				i+1, l.Quantity, fg.Format, max(left, 0)))
		}
		demand[fg.ID] += l.Quantity
	}
	return nil
}

func (p *stockPlan) each(lines []*repository.OrderLine, fn func(fg *repository.FinishedGoods, qty int)) {
	for _, l := range lines {
		if l.FinishedGoodsID == nil {
			continue
		}
		fg, ok := p.rows[*l.FinishedGoodsID]
		if !ok {
			continue
		}
		fn(fg, l.Quantity)
		p.dirty[fg.ID] = true
	}
}

func (p *stockPlan) reserve(lines []*repository.OrderLine) {
	p.each(lines, func(fg *repository.FinishedGoods, qty int) {
		fg.QuantityReserved += qty
	})
}

// ship takes the lines out of stock, consuming their reservation when they hold one
func (p *stockPlan) ship(lines []*repository.OrderLine, reserved bool) {
	p.each(lines, func(fg *repository.FinishedGoods, qty int) {
		fg.QuantityOnHand -= qty
		if reserved {
			fg.QuantityReserved -= min(fg.QuantityReserved, qty)
		}
	})
}

func (p *stockPlan) release(lines []*repository.OrderLine) {
	p.each(lines, func(fg *repository.FinishedGoods, qty int) {
		fg.QuantityReserved -= min(fg.QuantityReserved, qty)
	})
}

func (p *stockPlan) save(ctx context.Context) error {
	for _, id := range p.order {
		if !p.dirty[id] {
			continue
		}
		if err := p.repo.SetQuantities(ctx, p.rows[id]); err != nil {
			return err
		}
	}
	return nil
}
