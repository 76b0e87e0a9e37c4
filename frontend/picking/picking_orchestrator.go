package picking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/uptrace/bun"

	"dockout/infrastructure/audit"
	"dockout/infrastructure/locks"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/upstream"
	"dockout/infrastructure/workflow"
	"dockout/models"
)

// Orchestrator confirms picking for transferred delivery orders.
type Orchestrator struct {
	submitter Submitter
	db        *sqlite.DB
	audit     *audit.Service
	guard     locks.Guard
}

func NewOrchestrator(submitter Submitter, db *sqlite.DB, auditSvc *audit.Service, guard locks.Guard) *Orchestrator {
	if guard == nil {
		guard = locks.NewMemoryGuard()
	}
	return &Orchestrator{submitter: submitter, db: db, audit: auditSvc, guard: guard}
}

// Send posts one picking payload and classifies the reply. Session and
// transport failures become an error result.
func (o *Orchestrator) Send(ctx context.Context, payload sap.PickingRequest) Result {
	resp, err := o.submitter.PostPicking(ctx, payload)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Picking confirmation failed."
		}
		return Result{Status: models.StatusError, Message: msg, HTTPStatus: upstream.StatusOf(err)}
	}
	return Classify(resp)
}

// ConfirmPicking sends the picking payload a group got from its transfer.
// Only precondition failures are returned; the outcome lands on the group.
func (o *Orchestrator) ConfirmPicking(ctx context.Context, run *workflow.Run, doNo string) error {
	if err := run.RequireStage(workflow.StagePicking); err != nil {
		return err
	}
	release, err := o.guard.Acquire(ctx, "picking:"+run.VepToken()+":"+doNo)
	if err != nil {
		return err
	}
	defer release()

	started, err := run.UpdateGroup(doNo, func(g *models.DeliveryOrderGroup) error {
		if g.PickingPayload == nil {
			return ErrNoPayload
		}
		next, terr := workflow.PickingTransition(workflow.State{Status: g.Status}, workflow.Started)
		if terr != nil {
			return terr
		}
		g.Status = next.Status
		g.Validation = models.Validation{}
		return nil
	})
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	res := o.Send(ctx, *started.PickingPayload)
	outcome := workflow.Failed
	validation := models.ValidationError
	if res.Picked() {
		outcome = workflow.Succeeded
		validation = models.ValidationSuccess
	}

	settled, err := run.UpdateGroup(doNo, func(g *models.DeliveryOrderGroup) error {
		next, terr := workflow.PickingTransition(workflow.State{Status: g.Status}, outcome)
		if terr != nil {
			return terr
		}
		g.Status = next.Status
		g.Validation = models.Validation{Status: validation, Message: res.Message}
		g.PickingResponse = res.Doc
		return nil
	})
	if err != nil {
		slog.Error("apply picking outcome failed", slog.String("do_no", doNo), slog.Any("err", err))
		return nil
	}
	o.record(ctx, run.ID(), run.VepToken(), doNo, *started.PickingPayload, res, func(ctx context.Context, tx bun.Tx) error {
		if o.audit == nil {
			return nil
		}
		return o.audit.Transition(ctx, tx, run.ID(), doNo, models.StatusLoading, settled.Status, res.Message)
	})
	return nil
}

// Replay resends a stored picking payload outside of any run and logs the
// call under runID.
func (o *Orchestrator) Replay(ctx context.Context, runID string, row models.PickingLog) (Result, error) {
	var payload sap.PickingRequest
	if err := json.Unmarshal([]byte(row.RequestJSON), &payload); err != nil {
		return Result{}, fmt.Errorf("decode stored picking request %d: %w", row.ID, err)
	}
	res := o.Send(ctx, payload)
	o.record(ctx, runID, row.VepToken, row.DoNo, payload, res, nil)
	return res, nil
}

func (o *Orchestrator) record(ctx context.Context, runID, vepToken, doNo string, payload sap.PickingRequest, res Result, extra func(ctx context.Context, tx bun.Tx) error) {
	if o.db == nil {
		return
	}
	reqJSON, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal picking request failed", slog.String("do_no", doNo), slog.Any("err", err))
		return
	}
	err = o.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := insertPickingLog(ctx, tx, &models.PickingLog{
			RunID:        runID,
			VepToken:     vepToken,
			DoNo:         doNo,
			Outcome:      string(res.Status),
			Rescode:      res.Rescode,
			Message:      res.Message,
			HTTPStatus:   res.HTTPStatus,
			RequestJSON:  string(reqJSON),
			ResponseBody: res.Body,
		}); err != nil {
			return err
		}
		if extra == nil {
			return nil
		}
		return extra(ctx, tx)
	})
	if err != nil {
		slog.Error("record picking failed", slog.String("do_no", doNo), slog.Any("err", err))
	}
}

// CompleteAll confirms every transferred group concurrently. Each outcome
// is applied on its own.
func (o *Orchestrator) CompleteAll(ctx context.Context, run *workflow.Run) (BatchResult, error) {
	if err := run.RequireStage(workflow.StagePicking); err != nil {
		return BatchResult{}, err
	}
	var ready []string
	for _, g := range run.Groups() {
		if g.Status == models.StatusTransferred {
			ready = append(ready, g.DoNo)
		}
	}
	if len(ready) == 0 {
		return BatchResult{}, ErrNothingToPick
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = BatchResult{Rejected: make(map[string]error)}
	)
	for _, doNo := range ready {
		wg.Add(1)
		go func(doNo string) {
			defer wg.Done()
			err := o.ConfirmPicking(ctx, run, doNo)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Rejected[doNo] = err
				return
			}
			result.Submitted = append(result.Submitted, doNo)
		}(doNo)
	}
	wg.Wait()
	return result, nil
}

func (b BatchResult) Summary() string {
	msg := fmt.Sprintf("Sent picking for %d delivery order(s).", len(b.Submitted))
	if len(b.Rejected) > 0 {
		msg += fmt.Sprintf(" %d could not start.", len(b.Rejected))
	}
	return msg
}
