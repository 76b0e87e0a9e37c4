package exports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	runcontext "dockout/frontend/shared/context"
	"dockout/infrastructure/sqlite"
)

func ExportsPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		pickingCount, transferCount, err := countLogs(r.Context(), db, token)
		if err != nil {
			slog.Error("count logs failed", slog.Any("err", err))
			http.Error(w, "failed to load exports", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ExportsPage(PageData{VepToken: token, PickingCount: pickingCount, TransferCount: transferCount}).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render exports page", http.StatusInternalServerError)
		}
	}
}

func PickingLogsCSVHandler(db *sqlite.DB) http.HandlerFunc {
	return exportHandler(db, TypePickingCSV, "text/csv", "picking-logs", "csv", func(ctx context.Context, w http.ResponseWriter, token string) error {
		t, err := pickingLogsTable(ctx, db, token)
		if err != nil {
			return err
		}
		return writeCSV(w, t)
	})
}

func PickingLogsXLSXHandler(db *sqlite.DB) http.HandlerFunc {
	return exportHandler(db, TypePickingXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "picking-logs", "xlsx", func(ctx context.Context, w http.ResponseWriter, token string) error {
		t, err := pickingLogsTable(ctx, db, token)
		if err != nil {
			return err
		}
		return writeXLSX(w, "Picking Logs", t)
	})
}

func TransferLogsCSVHandler(db *sqlite.DB) http.HandlerFunc {
	return exportHandler(db, TypeTransferCSV, "text/csv", "transfer-logs", "csv", func(ctx context.Context, w http.ResponseWriter, token string) error {
		t, err := transferLogsTable(ctx, db, token)
		if err != nil {
			return err
		}
		return writeCSV(w, t)
	})
}

func exportHandler(db *sqlite.DB, exportType, contentType, name, ext string, write func(ctx context.Context, w http.ResponseWriter, token string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		filename := name
		if token != "" {
			filename += "-" + sanitizeFilename(token)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", filename, ext))
		if err := write(r.Context(), w, token); err != nil {
			slog.Error("export failed", slog.String("type", exportType), slog.Any("err", err))
			http.Error(w, "failed to export "+ext, http.StatusInternalServerError)
			return
		}
		runID := ""
		if run, ok := runcontext.GetRunFromContext(r.Context()); ok {
			runID = run.ID()
		}
		if err := recordExportRun(r.Context(), db, runID, exportType); err != nil {
			slog.Error("record export run failed", slog.String("type", exportType), slog.Any("err", err))
		}
	}
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
