package exports

import (
	"context"
	"strconv"

	"github.com/uptrace/bun"

	"dockout/frontend/picking"
	"dockout/frontend/transfer"
	"dockout/infrastructure/sqlite"
	"dockout/models"
)

const timeLayout = "02/01/2006 15:04:05"

func pickingLogsTable(ctx context.Context, db *sqlite.DB, vepToken string) (table, error) {
	var logs []models.PickingLog
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		logs, err = picking.ListPickingLogs(ctx, tx, vepToken)
		return err
	})
	if err != nil {
		return table{}, err
	}

	t := table{Headers: []string{"id", "created_at", "vep_token", "do_no", "outcome", "rescode", "message", "http_status", "request_json"}}
	for _, l := range logs {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.CreatedAt.Format(timeLayout),
			l.VepToken,
			l.DoNo,
			l.Outcome,
			l.Rescode,
			l.Message,
			strconv.Itoa(l.HTTPStatus),
			l.RequestJSON,
		})
	}
	return t, nil
}

func transferLogsTable(ctx context.Context, db *sqlite.DB, vepToken string) (table, error) {
	var logs []models.TransferLog
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		logs, err = transfer.ListTransferLogs(ctx, tx, vepToken)
		return err
	})
	if err != nil {
		return table{}, err
	}

	t := table{Headers: []string{"id", "created_at", "vep_token", "do_no", "outcome", "message", "http_status", "request_json"}}
	for _, l := range logs {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.CreatedAt.Format(timeLayout),
			l.VepToken,
			l.DoNo,
			l.Outcome,
			l.Message,
			strconv.Itoa(l.HTTPStatus),
			l.RequestJSON,
		})
	}
	return t, nil
}

func countLogs(ctx context.Context, db *sqlite.DB, vepToken string) (pickingCount, transferCount int, err error) {
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		pq := tx.NewSelect().Model((*models.PickingLog)(nil))
		tq := tx.NewSelect().Model((*models.TransferLog)(nil))
		if vepToken != "" {
			pq = pq.Where("pl.vep_token = ?", vepToken)
			tq = tq.Where("tl.vep_token = ?", vepToken)
		}
		var err error
		if pickingCount, err = pq.Count(ctx); err != nil {
			return err
		}
		transferCount, err = tq.Count(ctx)
		return err
	})
	return pickingCount, transferCount, err
}

func recordExportRun(ctx context.Context, db *sqlite.DB, runID, exportType string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&models.ExportRun{RunID: runID, ExportType: exportType}).Exec(ctx)
		return err
	})
}
