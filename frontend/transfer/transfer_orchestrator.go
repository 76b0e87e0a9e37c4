package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/uptrace/bun"

	"dockout/infrastructure/audit"
	"dockout/infrastructure/config"
	"dockout/infrastructure/locks"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/upstream"
	"dockout/infrastructure/workflow"
	"dockout/models"
)

const unknownError = "An unknown error occurred."

// Orchestrator posts delivery-order groups as stock movements and applies
// each outcome to the run.
type Orchestrator struct {
	mover    StockMover
	defaults config.PickingDefaults
	db       *sqlite.DB
	audit    *audit.Service
	guard    locks.Guard
}

func NewOrchestrator(mover StockMover, defaults config.PickingDefaults, db *sqlite.DB, auditSvc *audit.Service, guard locks.Guard) *Orchestrator {
	if guard == nil {
		guard = locks.NewMemoryGuard()
	}
	return &Orchestrator{mover: mover, defaults: defaults, db: db, audit: auditSvc, guard: guard}
}

// Transfer posts one group and classifies the reply. It never returns an
// error: failures are carried in the result.
func (o *Orchestrator) Transfer(ctx context.Context, g models.DeliveryOrderGroup) Result {
	token := groupToken(g)
	resp, err := o.mover.PostStockMove(ctx, BuildStockMoveRequest(g))
	if err != nil {
		return errorResult(err)
	}

	msg := resp.Message()
	res := Result{Status: Classify(msg), Message: msg, HTTPStatus: http.StatusOK, Body: resp.Raw, Response: resp}
	switch res.Status {
	case models.ValidationSuccess:
		res.PickingPayload = BuildPickingPayload(resp, token, o.defaults)
	case models.ValidationWarning:
		res.PickingPayload = PickingPayloadFromItems(g, token, o.defaults)
	default:
		if res.Message == "" {
			res.Message = unknownError
		}
	}
	return res
}

func errorResult(err error) Result {
	res := Result{Status: models.ValidationError, Message: err.Error(), HTTPStatus: upstream.StatusOf(err)}
	var he *upstream.HTTPError
	var de *upstream.DomainError
	switch {
	case errors.As(err, &he):
		res.Body = he.Body
	case errors.As(err, &de):
		res.Body = de.Body
	}
	if res.Message == "" {
		res.Message = unknownError
	}
	return res
}

// Submit validates and transfers one group of the run. Only precondition
// failures are returned; upstream outcomes land on the group.
func (o *Orchestrator) Submit(ctx context.Context, run *workflow.Run, doNo string) error {
	if err := run.RequireStage(workflow.StageTransfer); err != nil {
		return err
	}
	release, err := o.guard.Acquire(ctx, run.VepToken()+":"+doNo)
	if err != nil {
		return err
	}
	defer release()

	started, err := run.UpdateGroup(doNo, func(g *models.DeliveryOrderGroup) error {
		next, terr := workflow.TransferTransition(workflow.State{Status: g.Status, Editing: g.Editing}, workflow.Started)
		if terr != nil {
			return terr
		}
		if verr := Validate(g.Items); verr != nil {
			g.Validation = models.Validation{Status: models.ValidationError, Message: verr.Error()}
			return nil
		}
		g.Status = next.Status
		g.Validation = models.Validation{}
		return nil
	})
	if err != nil {
		return err
	}
	if started.Status != models.StatusLoading {
		return &ValidationError{Message: started.Validation.Message}
	}

	o.settle(context.WithoutCancel(ctx), run, started)
	return nil
}

// settle runs the transfer for a group already moved to loading and
// records the outcome.
func (o *Orchestrator) settle(ctx context.Context, run *workflow.Run, started models.DeliveryOrderGroup) {
	res := o.Transfer(ctx, started)

	outcome := workflow.Failed
	switch res.Status {
	case models.ValidationSuccess:
		outcome = workflow.Succeeded
	case models.ValidationWarning:
		outcome = workflow.Warned
	}

	settled, err := run.UpdateGroup(started.DoNo, func(g *models.DeliveryOrderGroup) error {
		next, terr := workflow.TransferTransition(workflow.State{Status: g.Status, Editing: g.Editing}, outcome)
		if terr != nil {
			return terr
		}
		g.Status = next.Status
		g.Editing = next.Editing
		g.Validation = models.Validation{Status: res.Status, Message: res.Message}
		if res.PickingPayload != nil {
			g.PickingPayload = res.PickingPayload
		}
		if res.Response != nil {
			g.SAPResponse = res.Response
		}
		return nil
	})
	if err != nil {
		slog.Error("apply transfer outcome failed", slog.String("do_no", started.DoNo), slog.Any("err", err))
		return
	}

	o.record(ctx, run, started, settled, res)
}

func (o *Orchestrator) record(ctx context.Context, run *workflow.Run, started, settled models.DeliveryOrderGroup, res Result) {
	if o.db == nil {
		return
	}
	reqJSON, err := json.Marshal(BuildStockMoveRequest(started))
	if err != nil {
		slog.Error("marshal transfer request failed", slog.String("do_no", started.DoNo), slog.Any("err", err))
		return
	}
	err = o.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := insertTransferLog(ctx, tx, &models.TransferLog{
			RunID:        run.ID(),
			VepToken:     run.VepToken(),
			DoNo:         started.DoNo,
			Outcome:      string(res.Status),
			Message:      res.Message,
			HTTPStatus:   res.HTTPStatus,
			RequestJSON:  string(reqJSON),
			ResponseBody: res.Body,
		}); err != nil {
			return err
		}
		if o.audit == nil {
			return nil
		}
		return o.audit.Transition(ctx, tx, run.ID(), started.DoNo, started.Status, settled.Status, res.Message)
	})
	if err != nil {
		slog.Error("record transfer failed", slog.String("do_no", started.DoNo), slog.Any("err", err))
	}
}

// TransferAll submits every pending or editing group concurrently. Groups
// failing validation are marked and skipped. Each outcome is applied on its
// own, so one failing group never affects the others.
func (o *Orchestrator) TransferAll(ctx context.Context, run *workflow.Run) (BatchResult, error) {
	if err := run.RequireStage(workflow.StageTransfer); err != nil {
		return BatchResult{}, err
	}

	var eligible []string
	for _, g := range run.Groups() {
		if g.Status == models.StatusPending || (g.Editing && g.Status != models.StatusCompleted && g.Status != models.StatusLoading) {
			eligible = append(eligible, g.DoNo)
		}
	}
	if len(eligible) == 0 {
		return BatchResult{}, ErrNothingPending
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = BatchResult{Rejected: make(map[string]error)}
	)
	for _, doNo := range eligible {
		wg.Add(1)
		go func(doNo string) {
			defer wg.Done()
			err := o.Submit(ctx, run, doNo)

			mu.Lock()
			defer mu.Unlock()
			var verr *ValidationError
			switch {
			case err == nil:
				result.Submitted = append(result.Submitted, doNo)
			case errors.As(err, &verr):
				result.Skipped = append(result.Skipped, doNo)
			default:
				result.Rejected[doNo] = err
			}
		}(doNo)
	}
	wg.Wait()
	return result, nil
}

// Summary is the flash message shown after a batch.
func (b BatchResult) Summary() string {
	msg := fmt.Sprintf("Submitted %d delivery order(s).", len(b.Submitted))
	if len(b.Skipped) > 0 {
		msg += fmt.Sprintf(" %d failed validation.", len(b.Skipped))
	}
	if len(b.Rejected) > 0 {
		msg += fmt.Sprintf(" %d could not start.", len(b.Rejected))
	}
	return msg
}

func groupToken(g models.DeliveryOrderGroup) string {
	for _, it := range g.Items {
		if it.VepToken != "" {
			return it.VepToken
		}
	}
	return ""
}
