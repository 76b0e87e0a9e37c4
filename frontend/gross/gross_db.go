package gross

import (
	"context"

	"github.com/uptrace/bun"

	"dockout/models"
)

func insertTegUpdate(ctx context.Context, tx bun.Tx, row *models.TegUpdate) error {
	_, err := tx.NewInsert().Model(row).Exec(ctx)
	return err
}

// ListTegUpdates returns the TEG calls logged for a VEP token, oldest first.
func ListTegUpdates(ctx context.Context, tx bun.Tx, vepToken string) ([]models.TegUpdate, error) {
	rows := make([]models.TegUpdate, 0)
	err := tx.NewSelect().Model(&rows).Where("tu.vep_token = ?", vepToken).OrderExpr("tu.id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
