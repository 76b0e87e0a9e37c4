package exports

// Export types written to export_runs.
const (
	TypePickingCSV  = "picking_logs_csv"
	TypePickingXLSX = "picking_logs_xlsx"
	TypeTransferCSV = "transfer_logs_csv"
)

type PageData struct {
	VepToken      string
	PickingCount  int
	TransferCount int
}

// table is an export as header plus string rows, shared by the CSV and
// XLSX writers.
type table struct {
	Headers []string
	Rows    [][]string
}
