package loading

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/uptrace/bun"

	runcontext "dockout/frontend/shared/context"
	"dockout/infrastructure/audit"
	"dockout/infrastructure/config"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/workflow"
)

func LoadingPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		if run.Stage() != workflow.StageLoading {
			http.Redirect(w, r, "/"+string(run.Stage()), http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := PageData{VepToken: r.URL.Query().Get("token"), Error: r.URL.Query().Get("error")}
		if err := LoadingPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render loading page", http.StatusInternalServerError)
		}
	}
}

// LoadTokenCommandHandler fetches the VEP token and hands its delivery
// orders to the transfer stage.
func LoadTokenCommandHandler(db *sqlite.DB, fetcher TokenFetcher, defaults config.LoadingDefaults, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := runcontext.GetRunFromContext(r.Context())
		if !ok {
			http.Error(w, "no workflow run", http.StatusInternalServerError)
			return
		}
		token := strings.TrimSpace(r.FormValue("vep_token"))
		fail := func(msg string) {
			http.Redirect(w, r, "/loading?token="+url.QueryEscape(token)+"&error="+url.QueryEscape(msg), http.StatusSeeOther)
		}
		if token == "" {
			fail(ErrBlankToken.Error())
			return
		}

		details, err := fetcher.FetchTokenDetails(r.Context(), token)
		if err != nil {
			slog.Error("token lookup failed", slog.String("vep_token", token), slog.Any("err", err))
			fail(err.Error())
			return
		}
		groups, err := LoadGroups(details, token, defaults)
		if err != nil {
			fail(err.Error())
			return
		}
		if err := run.CompleteLoading(token, groups); err != nil {
			if errors.Is(err, workflow.ErrStage) {
				http.Redirect(w, r, "/"+string(run.Stage()), http.StatusSeeOther)
				return
			}
			fail(err.Error())
			return
		}

		doNos := make([]string, 0, len(groups))
		for _, g := range groups {
			doNos = append(doNos, g.DoNo)
		}
		err = db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			return auditSvc.Write(ctx, tx, run.ID(), "token_loaded", audit.EntityRun, run.ID(), nil, map[string]any{"vep_token": token, "delivery_orders": doNos})
		})
		if err != nil {
			slog.Error("audit token load failed", slog.String("run_id", run.ID()), slog.Any("err", err))
		}
		http.Redirect(w, r, "/transfer", http.StatusSeeOther)
	}
}
