package transfer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dockout/models"
)

// Tolerance is the largest allowed shortage of actual against proposed, in
// percent of proposed.
var Tolerance = decimal.NewFromInt(20)

var hundred = decimal.NewFromInt(100)

// ValidationError blocks a transfer before anything is sent.
type ValidationError struct {
	Material string
	Message  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MaterialTotal sums one material across a group's items.
type MaterialTotal struct {
	Material string
	Proposed decimal.Decimal
	Actual   decimal.Decimal
}

// MaterialTotals aggregates items per material in order of first appearance.
func MaterialTotals(items []models.DeliveryOrderItem) []MaterialTotal {
	out := make([]MaterialTotal, 0)
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.Material]
		if !ok {
			i = len(out)
			index[it.Material] = i
			out = append(out, MaterialTotal{Material: it.Material, Proposed: decimal.Zero, Actual: decimal.Zero})
		}
		out[i].Proposed = out[i].Proposed.Add(it.ProposedQty)
		out[i].Actual = out[i].Actual.Add(it.ActualQty)
	}
	return out
}

// Validate checks every material of a group and returns the first
// violation. Materials with no actual quantity are never flagged.
//
// The first rule rejects proposed < actual although its message speaks of
// proposed being greater.
func Validate(items []models.DeliveryOrderItem) error {
	for _, t := range MaterialTotals(items) {
		if !t.Actual.IsPositive() {
			continue
		}
		if t.Proposed.LessThan(t.Actual) {
			return &ValidationError{
				Material: t.Material,
				Message: fmt.Sprintf("For material %s, proposed quantity (%s) cannot be greater than actual available quantity (%s).",
					t.Material, t.Proposed.String(), t.Actual.String()),
			}
		}
		shortage := t.Proposed.Sub(t.Actual).Div(t.Proposed).Mul(hundred)
		if shortage.GreaterThan(Tolerance) {
			return &ValidationError{
				Material: t.Material,
				Message:  fmt.Sprintf("For material %s, the proposed quantity exceeds the actual quantity by more than %s%% tolerance.", t.Material, Tolerance.String()),
			}
		}
	}
	return nil
}
