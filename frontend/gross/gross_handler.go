package gross

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	runcontext "dockout/frontend/shared/context"
	"dockout/infrastructure/teg"
	"dockout/infrastructure/workflow"
)

var validate = validator.New()

// materialRow is one additional-material row of the submit form.
type materialRow struct {
	Material string `validate:"required"`
	Weight   string `validate:"required,numeric"`
	UOM      string `validate:"oneof=KG G PC"`
}

func GrossPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		snap := run.Snapshot()
		if snap.Stage != workflow.StageGross {
			http.Redirect(w, r, "/"+string(snap.Stage), http.StatusSeeOther)
			return
		}
		data := PageData{
			VepToken:  snap.VepToken,
			State:     snap.Gross,
			CanSubmit: len(snap.Gross.Lines) > 0 && !snap.Gross.Mismatch && !snap.Gross.Completed,
			Status:    r.URL.Query().Get("status"),
			Error:     r.URL.Query().Get("error"),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := GrossPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render gross page", http.StatusInternalServerError)
		}
	}
}

func FetchCommandHandler(svc *Service) http.HandlerFunc {
	return command(func(r *http.Request, run *workflow.Run) (string, error) {
		return "", svc.Fetch(r.Context(), run)
	})
}

// SubmitCommandHandler reports the loading to TEG. mode=complete closes the
// loading; mode=materials sends the additional-material rows with it.
func SubmitCommandHandler(svc *Service) http.HandlerFunc {
	return command(func(r *http.Request, run *workflow.Run) (string, error) {
		attempt := workflow.GrossAttempt{IsCompleted: true}
		if r.FormValue("mode") == "materials" {
			materials, err := parseMaterials(r)
			if err != nil {
				return "", err
			}
			attempt = workflow.GrossAttempt{IsCompleted: false, Materials: materials}
		}
		return "Gross weight submitted.", svc.Submit(r.Context(), run, attempt)
	})
}

func RetryCommandHandler(svc *Service) http.HandlerFunc {
	return command(func(r *http.Request, run *workflow.Run) (string, error) {
		return "Gross weight submitted.", svc.Retry(r.Context(), run)
	})
}

func StartNewCommandHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		if err := svc.StartNew(r.Context(), run); err != nil {
			redirect(w, r, run, "", err)
			return
		}
		http.Redirect(w, r, "/loading", http.StatusSeeOther)
	}
}

// LoadingSlipQueryHandler downloads the loading slip of a submitted run.
func LoadingSlipQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		snap := run.Snapshot()
		if snap.Stage != workflow.StageGross || !snap.Gross.Completed {
			http.Error(w, "loading slip is available once gross weight is submitted", http.StatusConflict)
			return
		}
		pdf, err := RenderLoadingSlipPDF(snap.VepToken, snap.Gross.Lines, time.Now())
		if err != nil {
			http.Error(w, "failed to render loading slip", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "loading-slip-"+snap.VepToken+".pdf"))
		_, _ = w.Write(pdf)
	}
}

// parseMaterials reads the material, weight and uom columns. Rows with no
// material are dropped.
func parseMaterials(r *http.Request) ([]teg.AdditionalMaterial, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	names := r.PostForm["material"]
	weights := r.PostForm["weight"]
	uoms := r.PostForm["uom"]

	out := make([]teg.AdditionalMaterial, 0, len(names))
	for i, name := range names {
		row := materialRow{Material: strings.TrimSpace(name), Weight: strings.TrimSpace(at(weights, i)), UOM: at(uoms, i)}
		if row.Material == "" {
			continue
		}
		if row.UOM == "" {
			row.UOM = UOMOptions[0]
		}
		if err := validate.Struct(row); err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i+1, row.Material, ErrInvalidWeight)
		}
		out = append(out, teg.AdditionalMaterial{MaterialDescription: row.Material, ChargedWeight: row.Weight, UOM: row.UOM})
	}
	if len(out) == 0 {
		return nil, errors.New("add at least one material")
	}
	return out, nil
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func command(fn func(r *http.Request, run *workflow.Run) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		status, err := fn(r, run)
		if err == nil && run.Snapshot().Gross.Error != "" {
			status = ""
		}
		redirect(w, r, run, status, err)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, run *workflow.Run, status string, err error) {
	switch {
	case err == nil && status == "":
		http.Redirect(w, r, "/gross", http.StatusSeeOther)
	case err == nil:
		http.Redirect(w, r, "/gross?status="+url.QueryEscape(status), http.StatusSeeOther)
	case errors.Is(err, workflow.ErrStage) && run.Stage() != workflow.StageGross:
		http.Redirect(w, r, "/"+string(run.Stage()), http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/gross?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
	}
}
