package gross

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/uptrace/bun"

	"dockout/infrastructure/audit"
	"dockout/infrastructure/config"
	"dockout/infrastructure/locks"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/teg"
	"dockout/infrastructure/workflow"
	"dockout/models"
)

// Service runs the gross-weight stage of a workflow run.
type Service struct {
	fetcher  LoadedFetcher
	teg      TEG
	defaults config.TEGDefaults
	db       *sqlite.DB
	audit    *audit.Service
	guard    locks.Guard
}

func NewService(fetcher LoadedFetcher, tegClient TEG, defaults config.TEGDefaults, db *sqlite.DB, auditSvc *audit.Service, guard locks.Guard) *Service {
	if guard == nil {
		guard = locks.NewMemoryGuard()
	}
	return &Service{fetcher: fetcher, teg: tegClient, defaults: defaults, db: db, audit: auditSvc, guard: guard}
}

// Fetch loads the token's loaded lines and reconciles them. Upstream and
// reconciliation failures are kept on the gross state; only precondition
// failures are returned.
func (s *Service) Fetch(ctx context.Context, run *workflow.Run) error {
	if err := run.RequireStage(workflow.StageGross); err != nil {
		return err
	}
	if run.Snapshot().Gross.Completed {
		return ErrAlreadyDone
	}

	token := run.VepToken()
	lines, err := s.fetcher.FetchLoadedDetails(ctx, token)
	if err != nil {
		slog.Error("fetch loaded details failed", slog.String("vep_token", token), slog.Any("err", err))
	}
	// fn runs under the run lock and must not call back into run.
	return run.UpdateGross(func(g *workflow.GrossState) {
		*g = workflow.GrossState{}
		switch {
		case err != nil:
			g.Error = err.Error()
		case len(lines) == 0:
			g.Error = ErrNoLoadedData.Error()
		default:
			g.Lines = lines
			g.Total = TotalGross(lines)
			if Mismatched(lines) {
				g.Mismatch = true
				g.Error = ErrMismatch.Error()
			}
		}
	})
}

// Submit reports the loaded lines, and any additional materials, to TEG.
// The attempt is kept so a failure can be retried as is.
func (s *Service) Submit(ctx context.Context, run *workflow.Run, attempt workflow.GrossAttempt) error {
	if err := run.RequireStage(workflow.StageGross); err != nil {
		return err
	}
	release, err := s.guard.Acquire(ctx, "gross:"+run.VepToken())
	if err != nil {
		return err
	}
	defer release()

	state := run.Snapshot().Gross
	switch {
	case state.Completed:
		return ErrAlreadyDone
	case len(state.Lines) == 0:
		return ErrNotFetched
	case state.Mismatch:
		return ErrMismatch
	}

	attempt.Materials = append([]teg.AdditionalMaterial(nil), attempt.Materials...)
	if err := run.UpdateGross(func(g *workflow.GrossState) {
		g.LastAttempt = &attempt
		g.Error = ""
	}); err != nil {
		return err
	}

	sendErr := s.send(context.WithoutCancel(ctx), run, state.Lines, attempt)
	err = run.UpdateGross(func(g *workflow.GrossState) {
		if sendErr != nil {
			g.Error = sendErr.Error()
			return
		}
		g.Completed = true
		g.Error = ""
	})
	if err != nil {
		return err
	}
	if sendErr == nil {
		s.auditRun(ctx, run, "gross_submitted", map[string]any{"vep_token": run.VepToken(), "is_loading_completed": attempt.IsCompleted, "materials": len(attempt.Materials)})
	}
	return nil
}

// Retry resubmits the last attempt.
func (s *Service) Retry(ctx context.Context, run *workflow.Run) error {
	if err := run.RequireStage(workflow.StageGross); err != nil {
		return err
	}
	last := run.Snapshot().Gross.LastAttempt
	if last == nil {
		return ErrNoAttempt
	}
	return s.Submit(ctx, run, *last)
}

// StartNew closes the run's gross stage and resets it for the next token.
func (s *Service) StartNew(ctx context.Context, run *workflow.Run) error {
	token := run.VepToken()
	if err := run.StartNew(); err != nil {
		return err
	}
	s.auditRun(ctx, run, "run_restarted", map[string]any{"vep_token": token})
	return nil
}

func (s *Service) send(ctx context.Context, run *workflow.Run, lines []sap.LoadedLine, attempt workflow.GrossAttempt) error {
	vepToken := run.VepToken()

	tegToken, err := s.teg.Authenticate(ctx)
	s.log(ctx, run, StepAuth, false, err, nil)
	if err != nil {
		return ErrTEGAuth
	}

	update := BuildUpdate(vepToken, attempt.IsCompleted, lines, s.defaults)
	err = s.teg.UpdatePicking(ctx, tegToken, update)
	s.log(ctx, run, StepUpdate, attempt.IsCompleted, err, update)
	if err != nil {
		return ErrTEGUpdate
	}

	if req := BuildMaterials(vepToken, attempt.Materials); req != nil {
		err = s.teg.AddMaterials(ctx, tegToken, *req)
		s.log(ctx, run, StepMaterials, req.IsLoadingCompleted, err, req)
		if err != nil {
			return ErrTEGMaterials
		}
	}
	return nil
}

func (s *Service) log(ctx context.Context, run *workflow.Run, step string, isCompleted bool, callErr error, payload any) {
	if callErr != nil {
		slog.Error("teg call failed", slog.String("step", step), slog.String("vep_token", run.VepToken()), slog.Any("err", callErr))
	}
	if s.db == nil {
		return
	}
	reqJSON := "{}"
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			slog.Error("marshal teg request failed", slog.String("step", step), slog.Any("err", err))
			return
		}
		reqJSON = string(b)
	}
	row := &models.TegUpdate{
		RunID:              run.ID(),
		VepToken:           run.VepToken(),
		Step:               step,
		IsLoadingCompleted: isCompleted,
		Success:            callErr == nil,
		RequestJSON:        reqJSON,
	}
	if callErr != nil {
		row.Message = callErr.Error()
	}
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return insertTegUpdate(ctx, tx, row)
	})
	if err != nil {
		slog.Error("record teg update failed", slog.String("step", step), slog.Any("err", err))
	}
}

func (s *Service) auditRun(ctx context.Context, run *workflow.Run, action string, after any) {
	if s.db == nil || s.audit == nil {
		return
	}
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return s.audit.Write(ctx, tx, run.ID(), action, audit.EntityRun, run.ID(), nil, after)
	})
	if err != nil {
		slog.Error("audit gross stage failed", slog.String("action", action), slog.Any("err", err))
	}
}
