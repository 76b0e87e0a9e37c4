package audit

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"dockout/models"
)

// Entity types written to audit_logs.
const (
	EntityGroup = "delivery_order"
	EntityRun   = "workflow_run"
)

// Service writes audit records inside the caller transaction. The actor is
// the workflow run id.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, runID, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := marshal(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return err
	}
	_, err = tx.NewInsert().Model(&models.AuditLog{
		RunID:      runID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}).Exec(ctx)
	return err
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Transition records a delivery-order status change.
func (s *Service) Transition(ctx context.Context, tx bun.Tx, runID, doNo string, from, to models.GroupStatus, message string) error {
	return s.Write(ctx, tx, runID, "group_"+string(to), EntityGroup, doNo,
		map[string]string{"status": string(from)},
		map[string]string{"status": string(to), "message": message},
	)
}
