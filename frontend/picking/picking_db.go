package picking

import (
	"context"

	"github.com/uptrace/bun"

	"dockout/models"
)

func insertPickingLog(ctx context.Context, tx bun.Tx, row *models.PickingLog) error {
	_, err := tx.NewInsert().Model(row).Exec(ctx)
	return err
}

// ListPickingLogs returns the picking calls logged for a VEP token, oldest
// first. An empty token lists every call.
func ListPickingLogs(ctx context.Context, tx bun.Tx, vepToken string) ([]models.PickingLog, error) {
	rows := make([]models.PickingLog, 0)
	q := tx.NewSelect().Model(&rows).OrderExpr("pl.id ASC")
	if vepToken != "" {
		q = q.Where("pl.vep_token = ?", vepToken)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
