package workflow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dockout/infrastructure/sap"
	"dockout/infrastructure/teg"
	"dockout/models"
)

// Stage is the screen a run is on. Stages only move forward.
type Stage string

const (
	StageLoading  Stage = "loading"
	StageTransfer Stage = "transfer"
	StagePicking  Stage = "picking"
	StageGross    Stage = "gross"
)

var (
	// ErrStage is returned when an action does not belong to the current stage
	// or the stage's exit condition does not hold.
	ErrStage         = errors.New("action not allowed in current stage")
	ErrGroupNotFound = errors.New("delivery order not found")
)

// GrossAttempt is the last TEG submission, kept so it can be retried as is.
type GrossAttempt struct {
	IsCompleted bool
	Materials   []teg.AdditionalMaterial
}

// GrossState is the gross-weight reconciliation screen.
type GrossState struct {
	Lines       []sap.LoadedLine
	Total       decimal.Decimal
	Error       string
	Mismatch    bool
	Completed   bool
	LastAttempt *GrossAttempt
}

// Snapshot is a read-only copy of a run.
type Snapshot struct {
	ID        string
	VepToken  string
	Stage     Stage
	Groups    []models.DeliveryOrderGroup
	Gross     GrossState
	UpdatedAt time.Time
}

// Run owns the delivery-order groups of one operator's workflow. All
// mutation goes through its methods; readers get copies.
type Run struct {
	mu        sync.Mutex
	id        string
	vepToken  string
	stage     Stage
	groups    []models.DeliveryOrderGroup
	gross     GrossState
	updatedAt time.Time
}

func NewRun() *Run {
	return &Run{id: uuid.NewString(), stage: StageLoading, updatedAt: time.Now()}
}

func (r *Run) ID() string {
	return r.id
}

func (r *Run) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

func (r *Run) VepToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vepToken
}

func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	gross := r.gross
	gross.Lines = append([]sap.LoadedLine(nil), r.gross.Lines...)
	return Snapshot{
		ID:        r.id,
		VepToken:  r.vepToken,
		Stage:     r.stage,
		Groups:    cloneGroups(r.groups),
		Gross:     gross,
		UpdatedAt: r.updatedAt,
	}
}

// RequireStage fails with ErrStage unless the run is on s.
func (r *Run) RequireStage(s Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requireStage(s)
}

func (r *Run) requireStage(s Stage) error {
	if r.stage != s {
		return fmt.Errorf("%w: run is on %s, not %s", ErrStage, r.stage, s)
	}
	return nil
}

func (r *Run) Groups() []models.DeliveryOrderGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneGroups(r.groups)
}

func (r *Run) Group(doNo string) (models.DeliveryOrderGroup, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.DoNo == doNo {
			return g.Clone(), true
		}
	}
	return models.DeliveryOrderGroup{}, false
}

// UpdateGroup applies fn to a copy of the group keyed by doNo and swaps in
// a new group slice when fn succeeds. Other groups are untouched, so
// concurrent updates to different delivery orders never interfere.
// fn runs under the run lock and must not call other Run methods.
func (r *Run) UpdateGroup(doNo string, fn func(g *models.DeliveryOrderGroup) error) (models.DeliveryOrderGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, g := range r.groups {
		if g.DoNo == doNo {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.DeliveryOrderGroup{}, fmt.Errorf("%w: %s", ErrGroupNotFound, doNo)
	}

	updated := r.groups[idx].Clone()
	if err := fn(&updated); err != nil {
		return r.groups[idx].Clone(), err
	}
	next := make([]models.DeliveryOrderGroup, len(r.groups))
	copy(next, r.groups)
	next[idx] = updated
	r.groups = next
	r.updatedAt = time.Now()
	return updated.Clone(), nil
}

// CompleteLoading hands the loaded groups to the transfer stage.
func (r *Run) CompleteLoading(vepToken string, groups []models.DeliveryOrderGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireStage(StageLoading); err != nil {
		return err
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: no delivery orders loaded", ErrStage)
	}
	r.vepToken = vepToken
	r.groups = cloneGroups(groups)
	r.stage = StageTransfer
	r.updatedAt = time.Now()
	return nil
}

// AllTransferred reports whether the transfer stage's exit condition holds.
func AllTransferred(groups []models.DeliveryOrderGroup) bool {
	return allIn(groups, models.StatusTransferred, models.StatusCompleted)
}

// AllPicked reports whether the picking stage's exit condition holds.
func AllPicked(groups []models.DeliveryOrderGroup) bool {
	return allIn(groups, models.StatusPicked, models.StatusCompleted)
}

// CompleteTransfer moves to picking once every group is transferred or
// already completed.
func (r *Run) CompleteTransfer() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireStage(StageTransfer); err != nil {
		return err
	}
	if !AllTransferred(r.groups) {
		return fmt.Errorf("%w: every delivery order must be transferred first", ErrStage)
	}
	r.stage = StagePicking
	r.updatedAt = time.Now()
	return nil
}

// CompletePicking moves to gross once every group is picked or completed.
func (r *Run) CompletePicking() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireStage(StagePicking); err != nil {
		return err
	}
	if !AllPicked(r.groups) {
		return fmt.Errorf("%w: every delivery order must be picked first", ErrStage)
	}
	r.stage = StageGross
	r.updatedAt = time.Now()
	return nil
}

// UpdateGross applies fn to the gross state. Only valid on the gross stage.
// fn runs under the run lock and must not call other Run methods.
func (r *Run) UpdateGross(fn func(g *GrossState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireStage(StageGross); err != nil {
		return err
	}
	fn(&r.gross)
	r.updatedAt = time.Now()
	return nil
}

// StartNew resets the run to loading with no groups. It is the exit of the
// gross stage and requires the TEG submission to have completed.
func (r *Run) StartNew() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireStage(StageGross); err != nil {
		return err
	}
	if !r.gross.Completed {
		return fmt.Errorf("%w: gross weight has not been submitted", ErrStage)
	}
	r.vepToken = ""
	r.groups = nil
	r.gross = GrossState{}
	r.stage = StageLoading
	r.updatedAt = time.Now()
	return nil
}

func allIn(groups []models.DeliveryOrderGroup, statuses ...models.GroupStatus) bool {
	if len(groups) == 0 {
		return false
	}
	for _, g := range groups {
		ok := false
		for _, s := range statuses {
			if g.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func cloneGroups(groups []models.DeliveryOrderGroup) []models.DeliveryOrderGroup {
	if groups == nil {
		return nil
	}
	out := make([]models.DeliveryOrderGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}
	return out
}
