package transfer

import (
	"context"

	"github.com/uptrace/bun"

	"dockout/models"
)

func insertTransferLog(ctx context.Context, tx bun.Tx, row *models.TransferLog) error {
	_, err := tx.NewInsert().Model(row).Exec(ctx)
	return err
}

// ListTransferLogs returns the logged postings of a VEP token, newest first.
// An empty token lists every posting.
func ListTransferLogs(ctx context.Context, tx bun.Tx, vepToken string) ([]models.TransferLog, error) {
	rows := make([]models.TransferLog, 0)
	q := tx.NewSelect().Model(&rows).OrderExpr("tl.id DESC")
	if vepToken != "" {
		q = q.Where("tl.vep_token = ?", vepToken)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
