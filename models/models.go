package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TransferLog records one stock-movement posting for a delivery order.
type TransferLog struct {
	bun.BaseModel `bun:"table:transfer_logs,alias:tl"`

	ID           int64     `bun:"id,pk,autoincrement"`
	RunID        string    `bun:"run_id,notnull"`
	VepToken     string    `bun:"vep_token,notnull"`
	DoNo         string    `bun:"do_no,notnull"`
	Outcome      string    `bun:"outcome,notnull"`
	Message      string    `bun:"message"`
	HTTPStatus   int       `bun:"http_status,notnull,default:0"`
	RequestJSON  string    `bun:"request_json,notnull"`
	ResponseBody string    `bun:"response_body"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PickingLog records one picking confirmation. The stored request can be
// replayed from the command line.
type PickingLog struct {
	bun.BaseModel `bun:"table:picking_logs,alias:pl"`

	ID           int64     `bun:"id,pk,autoincrement"`
	RunID        string    `bun:"run_id,notnull"`
	VepToken     string    `bun:"vep_token,notnull"`
	DoNo         string    `bun:"do_no,notnull"`
	Outcome      string    `bun:"outcome,notnull"`
	Rescode      string    `bun:"rescode"`
	Message      string    `bun:"message"`
	HTTPStatus   int       `bun:"http_status,notnull,default:0"`
	RequestJSON  string    `bun:"request_json,notnull"`
	ResponseBody string    `bun:"response_body"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// TegUpdate records one call made during gross-weight submission.
type TegUpdate struct {
	bun.BaseModel `bun:"table:teg_updates,alias:tu"`

	ID                 int64     `bun:"id,pk,autoincrement"`
	RunID              string    `bun:"run_id,notnull"`
	VepToken           string    `bun:"vep_token,notnull"`
	Step               string    `bun:"step,notnull"`
	IsLoadingCompleted bool      `bun:"is_loading_completed,notnull,default:false"`
	Success            bool      `bun:"success,notnull,default:false"`
	Message            string    `bun:"message"`
	RequestJSON        string    `bun:"request_json,notnull"`
	CreatedAt          time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ExportRun records a download from the exports page.
type ExportRun struct {
	bun.BaseModel `bun:"table:export_runs,alias:er"`

	ID         int64     `bun:"id,pk,autoincrement"`
	RunID      string    `bun:"run_id"`
	ExportType string    `bun:"export_type,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AuditLog captures immutable change history for workflow transitions.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	RunID      string    `bun:"run_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
