package picking

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

func PickingPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		snap := run.Snapshot()
		if snap.Stage != workflow.StagePicking {
			http.Redirect(w, r, "/"+string(snap.Stage), http.StatusSeeOther)
			return
		}
		data := PageData{
			VepToken:  snap.VepToken,
			Groups:    snap.Groups,
			AllPicked: workflow.AllPicked(snap.Groups),
			Status:    r.URL.Query().Get("status"),
			Error:     r.URL.Query().Get("error"),
		}
		for _, g := range snap.Groups {
			if g.Status == models.StatusTransferred {
				data.HasReady = true
				break
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := PickingPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render picking page", http.StatusInternalServerError)
		}
	}
}

// ConfirmPickingCommandHandler confirms picking for one delivery order.
func ConfirmPickingCommandHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		doNo := chi.URLParam(r, "doNo")
		err := orch.ConfirmPicking(r.Context(), run, doNo)
		redirect(w, r, run, "Picking sent for "+doNo+".", err)
	}
}

func CompleteAllCommandHandler(orch *Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		res, err := orch.CompleteAll(r.Context(), run)
		redirect(w, r, run, res.Summary(), err)
	}
}

// CompletePickingCommandHandler hands the run to the gross-weight stage.
func CompletePickingCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		if err := run.CompletePicking(); err != nil {
			redirect(w, r, run, "", err)
			return
		}
		err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			return auditSvc.Write(ctx, tx, run.ID(), "picking_completed", audit.EntityRun, run.ID(),
				map[string]string{"stage": string(workflow.StagePicking)},
				map[string]string{"stage": string(workflow.StageGross)})
		})
		if err != nil {
			slog.Error("audit picking completion failed", slog.String("run_id", run.ID()), slog.Any("err", err))
		}
		http.Redirect(w, r, "/gross", http.StatusSeeOther)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, run *workflow.Run, status string, err error) {
	switch {
	case err == nil:
		http.Redirect(w, r, "/picking?status="+url.QueryEscape(status), http.StatusSeeOther)
	case errors.Is(err, workflow.ErrStage) && run.Stage() != workflow.StagePicking:
		http.Redirect(w, r, "/"+string(run.Stage()), http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/picking?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
	}
}
