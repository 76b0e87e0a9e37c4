package gross

import (
	"context"
	"errors"

	"dockout/infrastructure/sap"
	"dockout/infrastructure/teg"
	"dockout/infrastructure/workflow"
)

// LoadedFetcher reads the loaded lines of a VEP token from SAP.
type LoadedFetcher interface {
	FetchLoadedDetails(ctx context.Context, token string) ([]sap.LoadedLine, error)
}

// TEG is the logistics API the loaded weights are reported to.
type TEG interface {
	Authenticate(ctx context.Context) (string, error)
	UpdatePicking(ctx context.Context, token string, req teg.UpdateRequest) error
	AddMaterials(ctx context.Context, token string, req teg.AdditionalMaterialsRequest) error
}

var (
	ErrNoLoadedData  = errors.New("No data found for the provided VEP Token.")
	ErrMismatch      = errors.New("LFIMG and PRQTY fields do not match for all items.")
	ErrNotFetched    = errors.New("fetch the loaded data first")
	ErrAlreadyDone   = errors.New("gross weight has already been submitted")
	ErrNoAttempt     = errors.New("nothing to retry")
	ErrTEGAuth       = errors.New("Failed to get TEG authentication token.")
	ErrTEGUpdate     = errors.New("Failed to send TEG update.")
	ErrTEGMaterials  = errors.New("Failed to send additional materials.")
	ErrInvalidWeight = errors.New("additional material weight must be a number")
)

// Steps written to teg_updates.
const (
	StepAuth      = "auth"
	StepUpdate    = "update"
	StepMaterials = "additional_materials"
)

// MaterialOptions are the packing materials an operator may add.
var MaterialOptions = []string{
	"Husk",
	"Ply",
	"Wastage Carton",
	"Hardboard",
	"Ply 3mm",
	"Black Polythene Paper",
	"Tarpoline",
	"Tin Sheet",
	"Gift Items",
}

// UOMOptions are the units an additional material may be weighed in.
var UOMOptions = []string{"KG", "G", "PC"}

type PageData struct {
	VepToken  string
	State     workflow.GrossState
	CanSubmit bool
	Status    string
	Error     string
}
