package picking

import (
	"context"
	"errors"

	"dockout/infrastructure/sap"
	"dockout/models"
)

// Submitter posts picking confirmations to SAP.
type Submitter interface {
	PostPicking(ctx context.Context, payload sap.PickingRequest) (*sap.PickingResponse, error)
}

var (
	ErrNothingToPick = errors.New("No transferred ODBs to pick.")
	ErrNoPayload     = errors.New("delivery order has no picking payload")
)

// Result is the classified outcome of one picking call.
type Result struct {
	Status     models.GroupStatus
	Rescode    string
	Message    string
	HTTPStatus int
	Body       string
	Doc        map[string]any
}

func (r Result) Picked() bool {
	return r.Status == models.StatusPicked
}

// BatchResult summarises a Complete All Picking run.
type BatchResult struct {
	Submitted []string
	Rejected  map[string]error
}

type PageData struct {
	VepToken  string
	Groups    []models.DeliveryOrderGroup
	AllPicked bool
	HasReady  bool
	Status    string
	Error     string
}
