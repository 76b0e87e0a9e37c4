package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dockout/infrastructure/workflow"
	"dockout/models"
)

var validate = validator.New()

var ErrLastItem = errors.New("a delivery order needs at least one item")

// ItemEdit is the operator's change to one item's actuals.
type ItemEdit struct {
	ActualQty   string
	ActualBatch string
	StorageType string `validate:"oneof=EDO RVP SCK PICKER"`
	DestSloc    string `validate:"oneof=ZF05 ZF04 ZF03 ZF02 ZF01"`
}

// ParseQty reads an operator-entered quantity. Anything that is not a
// number counts as zero.
func ParseQty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ToggleEdit opens or closes edit mode for a group. Completed groups and
// groups with a call in flight cannot be edited. Any shown validation
// result is cleared.
func ToggleEdit(run *workflow.Run, doNo string) (models.DeliveryOrderGroup, error) {
	if err := run.RequireStage(workflow.StageTransfer); err != nil {
		return models.DeliveryOrderGroup{}, err
	}
	return run.UpdateGroup(doNo, func(g *models.DeliveryOrderGroup) error {
		if g.Status == models.StatusCompleted || g.Status == models.StatusLoading {
			return ErrNotEditable
		}
		g.Editing = !g.Editing
		g.Validation = models.Validation{}
		return nil
	})
}

// EditItem applies an operator edit to one item of a group in edit mode.
func EditItem(run *workflow.Run, doNo, itemID string, edit ItemEdit) (models.DeliveryOrderGroup, error) {
	if err := validate.Struct(edit); err != nil {
		return models.DeliveryOrderGroup{}, fmt.Errorf("invalid item edit: %w", err)
	}
	return editItems(run, doNo, func(items []models.DeliveryOrderItem) ([]models.DeliveryOrderItem, error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, ErrItemNotFound
		}
		items[i].ActualQty = ParseQty(edit.ActualQty)
		items[i].ActualBatch = strings.TrimSpace(edit.ActualBatch)
		items[i].StorageType = edit.StorageType
		items[i].DestSloc = edit.DestSloc
		return items, nil
	})
}

// DuplicateItem inserts a copy of an item right after it, with a new id and
// zero quantities, so the operator can split a line across batches.
func DuplicateItem(run *workflow.Run, doNo, itemID string) (models.DeliveryOrderGroup, error) {
	return editItems(run, doNo, func(items []models.DeliveryOrderItem) ([]models.DeliveryOrderItem, error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, ErrItemNotFound
		}
		dup := items[i]
		dup.ID = uuid.NewString()
		dup.IsNew = true
		dup.ProposedQty = decimal.Zero
		dup.ActualQty = decimal.Zero
		dup.ActualBatch = ""

		out := make([]models.DeliveryOrderItem, 0, len(items)+1)
		out = append(out, items[:i+1]...)
		out = append(out, dup)
		out = append(out, items[i+1:]...)
		return out, nil
	})
}

func DeleteItem(run *workflow.Run, doNo, itemID string) (models.DeliveryOrderGroup, error) {
	return editItems(run, doNo, func(items []models.DeliveryOrderItem) ([]models.DeliveryOrderItem, error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, ErrItemNotFound
		}
		if len(items) == 1 {
			return nil, ErrLastItem
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

func editItems(run *workflow.Run, doNo string, fn func(items []models.DeliveryOrderItem) ([]models.DeliveryOrderItem, error)) (models.DeliveryOrderGroup, error) {
	if err := run.RequireStage(workflow.StageTransfer); err != nil {
		return models.DeliveryOrderGroup{}, err
	}
	return run.UpdateGroup(doNo, func(g *models.DeliveryOrderGroup) error {
		if !g.Editing {
			return ErrNotEditing
		}
		items, err := fn(g.Items)
		if err != nil {
			return err
		}
		g.Items = items
		return nil
	})
}

func indexOf(items []models.DeliveryOrderItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
