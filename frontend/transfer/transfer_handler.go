package transfer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	runcontext "dockout/frontend/shared/context"
	"dockout/infrastructure/audit"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/workflow"
	"dockout/models"
)

func TransferPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		snap := run.Snapshot()
		if snap.Stage != workflow.StageTransfer {
			http.Redirect(w, r, "/"+string(snap.Stage), http.StatusSeeOther)
			return
		}
		data := PageData{
			VepToken:       snap.VepToken,
			Groups:         snap.Groups,
			AllTransferred: workflow.AllTransferred(snap.Groups),
			Status:         r.URL.Query().Get("status"),
			Error:          r.URL.Query().Get("error"),
		}
		for _, g := range snap.Groups {
			if g.Status == models.StatusPending || (g.Editing && g.Status != models.StatusCompleted && g.Status != models.StatusLoading) {
				data.HasPending = true
				break
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := TransferPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render transfer page", http.StatusInternalServerError)
		}
	}
}

func ToggleEditCommandHandler() http.HandlerFunc {
	return groupCommand(func(r *http.Request, run *workflow.Run) (string, error) {
		g, err := ToggleEdit(run, chi.URLParam(r, "doNo"))
		if err != nil {
			return "", err
		}
		if g.Editing {
			return "Editing " + g.DoNo + ".", nil
		}
		return "Finished editing " + g.DoNo + ".", nil
	})
}

func EditItemCommandHandler() http.HandlerFunc {
	return groupCommand(func(r *http.Request, run *workflow.Run) (string, error) {
		edit := ItemEdit{
			ActualQty:   r.FormValue("actual_qty"),
			ActualBatch: r.FormValue("actual_batch"),
			StorageType: r.FormValue("storage_type"),
			DestSloc:    r.FormValue("dest_sloc"),
		}
		if _, err := EditItem(run, chi.URLParam(r, "doNo"), chi.URLParam(r, "itemID"), edit); err != nil {
			return "", err
		}
		return "Item updated.", nil
	})
}

func DuplicateItemCommandHandler() http.HandlerFunc {
	return groupCommand(func(r *http.Request, run *workflow.Run) (string, error) {
		if _, err := DuplicateItem(run, chi.URLParam(r, "doNo"), chi.URLParam(r, "itemID")); err != nil {
			return "", err
		}
		return "Item duplicated.", nil
	})
}

func DeleteItemCommandHandler() http.HandlerFunc {
	return groupCommand(func(r *http.Request, run *workflow.Run) (string, error) {
		if _, err := DeleteItem(run, chi.URLParam(r, "doNo"), chi.URLParam(r, "itemID")); err != nil {
			return "", err
		}
		return "Item deleted.", nil
	})
}

// SubmitCommandHandler transfers one delivery order. The upstream outcome
// is shown on the group itself.
func SubmitCommandHandler(orch *Orchestrator) http.HandlerFunc {
	return groupCommand(func(r *http.Request, run *workflow.Run) (string, error) {
		doNo := chi.URLParam(r, "doNo")
		if err := orch.Submit(r.Context(), run, doNo); err != nil {
			return "", err
		}
		return "Submitted " + doNo + ".", nil
	})
}

func TransferAllCommandHandler(orch *Orchestrator) http.HandlerFunc {
	return groupCommand(func(r *http.Request, run *workflow.Run) (string, error) {
		res, err := orch.TransferAll(r.Context(), run)
		if err != nil {
			return "", err
		}
		return res.Summary(), nil
	})
}

// CompleteTransferCommandHandler hands the groups to the picking stage.
func CompleteTransferCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		if err := run.CompleteTransfer(); err != nil {
			redirect(w, r, run, "", err)
			return
		}
		err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			return auditSvc.Write(ctx, tx, run.ID(), "transfer_completed", audit.EntityRun, run.ID(),
				map[string]string{"stage": string(workflow.StageTransfer)},
				map[string]string{"stage": string(workflow.StagePicking)})
		})
		if err != nil {
			slog.Error("audit transfer completion failed", slog.String("run_id", run.ID()), slog.Any("err", err))
		}
		http.Redirect(w, r, "/picking", http.StatusSeeOther)
	}
}

func groupCommand(fn func(r *http.Request, run *workflow.Run) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		status, err := fn(r, run)
		redirect(w, r, run, status, err)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, run *workflow.Run, status string, err error) {
	switch {
	case err == nil:
		http.Redirect(w, r, "/transfer?status="+url.QueryEscape(status), http.StatusSeeOther)
	case errors.Is(err, workflow.ErrStage) && run.Stage() != workflow.StageTransfer:
		http.Redirect(w, r, "/"+string(run.Stage()), http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/transfer?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
	}
}
