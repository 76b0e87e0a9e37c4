package transfer

import (
	"context"
	"errors"

	"dockout/infrastructure/sap"
	"dockout/models"
)

// StockMover posts stock movements to SAP.
type StockMover interface {
	PostStockMove(ctx context.Context, payload sap.StockMoveRequest) (*sap.StockMoveResponse, error)
}

var (
	ErrNothingPending = errors.New("No pending ODBs to transfer.")
	ErrNotEditing     = errors.New("delivery order is not in edit mode")
	ErrNotEditable    = errors.New("delivery order cannot be edited in its current status")
	ErrItemNotFound   = errors.New("item not found")
)

// Result is the classified outcome of one stock-transfer call.
type Result struct {
	Status         models.ValidationStatus
	Message        string
	HTTPStatus     int
	Body           string
	PickingPayload *sap.PickingRequest
	Response       *sap.StockMoveResponse
}

// BatchResult summarises a Transfer All Pending run. Per-group outcomes live
// on the groups themselves.
type BatchResult struct {
	Submitted []string
	Skipped   []string
	Rejected  map[string]error
}

type PageData struct {
	VepToken       string
	Groups         []models.DeliveryOrderGroup
	AllTransferred bool
	HasPending     bool
	Status         string
	Error          string
}
