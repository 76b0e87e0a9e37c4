package models

import (
	"github.com/shopspring/decimal"

	"dockout/infrastructure/sap"
)

// GroupStatus is the lifecycle state of a delivery-order group.
type GroupStatus string

const (
	StatusPending     GroupStatus = "pending"
	StatusLoading     GroupStatus = "loading"
	StatusTransferred GroupStatus = "transferred"
	StatusPicked      GroupStatus = "picked"
	StatusCompleted   GroupStatus = "completed"
	StatusError       GroupStatus = "error"
)

// ValidationStatus is the outcome shown next to a group after a transfer.
type ValidationStatus string

const (
	ValidationNone    ValidationStatus = ""
	ValidationSuccess ValidationStatus = "success"
	ValidationWarning ValidationStatus = "warning"
	ValidationError   ValidationStatus = "error"
)

// StorageTypes are the storage types an operator may pick.
var StorageTypes = []string{"EDO", "RVP", "SCK", "PICKER"}

// DestSlocs are the destination storage locations an operator may pick.
var DestSlocs = []string{"ZF05", "ZF04", "ZF03", "ZF02", "ZF01"}

// DeliveryOrderItem is one line of a delivery order as loaded from a VEP
// token, plus the operator's confirmed actuals.
type DeliveryOrderItem struct {
	ID            string
	SNo           int
	VepToken      string
	DoNo          string
	WMSPicking    string
	PickingStatus string
	PGIStatus     string
	Posnr         string
	Material      string
	MaterialDes   string
	ProposedQty   decimal.Decimal
	ProposedBatch string
	UOM           string
	Bin           string
	StorageType   string `validate:"oneof=EDO RVP SCK PICKER"`
	DestSloc      string `validate:"oneof=ZF05 ZF04 ZF03 ZF02 ZF01"`
	Warehouse     string
	Storage       string
	Plant         string
	Dock          string
	DocCata       string
	Net           string
	Gross         string
	SequenceNo    string
	Channel       string
	Uecha         string
	ActualQty     decimal.Decimal
	ActualBatch   string
	IsNew         bool
	Status        string
	ErrorMessage  string
}

// Validation is the last transfer outcome shown for a group.
type Validation struct {
	Status  ValidationStatus
	Message string
}

// DeliveryOrderGroup is all items sharing one delivery order number.
type DeliveryOrderGroup struct {
	DoNo            string
	Items           []DeliveryOrderItem
	Status          GroupStatus
	Editing         bool
	Validation      Validation
	PickingPayload  *sap.PickingRequest
	SAPResponse     *sap.StockMoveResponse
	PickingResponse map[string]any
}

// Clone copies g deeply enough that edits to the copy never reach g.
func (g DeliveryOrderGroup) Clone() DeliveryOrderGroup {
	out := g
	out.Items = append([]DeliveryOrderItem(nil), g.Items...)
	if g.PickingPayload != nil {
		p := *g.PickingPayload
		p.Getloadingsequence.Results = append([]sap.LoadingSequenceItem(nil), g.PickingPayload.Getloadingsequence.Results...)
		out.PickingPayload = &p
	}
	return out
}
