package workflow

import (
	"errors"
	"fmt"

	"dockout/models"
)

// ErrInvalidTransition is returned for a (state, outcome) pair the
// lifecycle does not define.
var ErrInvalidTransition = errors.New("invalid group transition")

// Outcome is what an orchestrator reports about one call for one group.
type Outcome int

const (
	Started Outcome = iota
	Succeeded
	Warned
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case Succeeded:
		return "succeeded"
	case Warned:
		return "warned"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is the part of a group the lifecycle drives.
type State struct {
	Status  models.GroupStatus
	Editing bool
}

func invalid(stage string, from State, o Outcome) error {
	return fmt.Errorf("%w: %s %s from %s (editing=%t)", ErrInvalidTransition, stage, o, from.Status, from.Editing)
}

// TransferTransition drives a group through the stock-transfer stage.
// A transfer may start from pending, or from any settled state the operator
// has opened for editing. Every settled outcome leaves edit mode.
func TransferTransition(from State, o Outcome) (State, error) {
	switch o {
	case Started:
		switch {
		case from.Status == models.StatusPending:
		case from.Editing && from.Status != models.StatusCompleted && from.Status != models.StatusLoading:
		default:
			return from, invalid("transfer", from, o)
		}
		return State{Status: models.StatusLoading, Editing: from.Editing}, nil
	case Succeeded, Warned:
		if from.Status != models.StatusLoading {
			return from, invalid("transfer", from, o)
		}
		return State{Status: models.StatusTransferred}, nil
	case Failed:
		if from.Status != models.StatusLoading {
			return from, invalid("transfer", from, o)
		}
		return State{Status: models.StatusError}, nil
	}
	return from, invalid("transfer", from, o)
}

// PickingTransition drives a group through the picking stage. Picking
// starts from transferred, or from error as a retry.
func PickingTransition(from State, o Outcome) (State, error) {
	switch o {
	case Started:
		if from.Status != models.StatusTransferred && from.Status != models.StatusError {
			return from, invalid("picking", from, o)
		}
		return State{Status: models.StatusLoading}, nil
	case Succeeded:
		if from.Status != models.StatusLoading {
			return from, invalid("picking", from, o)
		}
		return State{Status: models.StatusPicked}, nil
	case Failed:
		if from.Status != models.StatusLoading {
			return from, invalid("picking", from, o)
		}
		return State{Status: models.StatusError}, nil
	}
	return from, invalid("picking", from, o)
}

// InitialStatus is completed when every item's upstream picking status is
// C, else pending. An empty group is pending.
func InitialStatus(items []models.DeliveryOrderItem) models.GroupStatus {
	if len(items) == 0 {
		return models.StatusPending
	}
	for _, it := range items {
		if it.Status != string(models.StatusCompleted) {
			return models.StatusPending
		}
	}
	return models.StatusCompleted
}
