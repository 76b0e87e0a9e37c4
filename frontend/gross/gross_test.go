package gross

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	runcontext "dockout/frontend/shared/context"
	"dockout/infrastructure/audit"
	"dockout/infrastructure/config"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/teg"
	"dockout/infrastructure/workflow"
	"dockout/models"
)

type fakeFetcher struct {
	lines []sap.LoadedLine
	err   error
}

func (f *fakeFetcher) FetchLoadedDetails(_ context.Context, _ string) ([]sap.LoadedLine, error) {
	return f.lines, f.err
}

type fakeTEG struct {
	mu        sync.Mutex
	authErr   error
	updateErr error
	matErr    error
	auths     int
	updates   []teg.UpdateRequest
	materials []teg.AdditionalMaterialsRequest
}

func (f *fakeTEG) Authenticate(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auths++
	if f.authErr != nil {
		return "", f.authErr
	}
	return "teg-token-123", nil
}

func (f *fakeTEG) UpdatePicking(_ context.Context, token string, req teg.UpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != "teg-token-123" {
		return errors.New("bad token")
	}
	f.updates = append(f.updates, req)
	return f.updateErr
}

func (f *fakeTEG) AddMaterials(_ context.Context, _ string, req teg.AdditionalMaterialsRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.materials = append(f.materials, req)
	return f.matErr
}

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "gross.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := sqlite.ApplyMigrations(context.Background(), db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func newGrossRun(t *testing.T) *workflow.Run {
	t.Helper()
	run := workflow.NewRun()
	groups := []models.DeliveryOrderGroup{{DoNo: "80001", Status: models.StatusCompleted}}
	if err := run.CompleteLoading("VEP1", groups); err != nil {
		t.Fatalf("complete loading: %v", err)
	}
	if err := run.CompleteTransfer(); err != nil {
		t.Fatalf("complete transfer: %v", err)
	}
	if err := run.CompletePicking(); err != nil {
		t.Fatalf("complete picking: %v", err)
	}
	return run
}

func matchedLines() []sap.LoadedLine {
	return []sap.LoadedLine{
		{ObdNo: "80001", Posnr: "000010", Matnr: "M1", Charg: "B1", Lfimg: "10", Prqty: "10", Ntgew: "95", Brgew: "100.5", Lgort: "ZF05", Uecha: "900001"},
		{ObdNo: "80001", Posnr: "", Matnr: "M2", Charg: "B2", Lfimg: "3", Prqty: "3", Uecha: "000000"},
	}
}

func TestTotalGrossAndMismatch(t *testing.T) {
	lines := []sap.LoadedLine{{Brgew: "10.5", Lfimg: "1", Prqty: "1"}, {Brgew: ""}, {Brgew: "x"}, {Brgew: "4.25", Lfimg: "2", Prqty: "2.000"}}
	if got := TotalGross(lines).StringFixed(2); got != "14.75" {
		t.Fatalf("expected 14.75, got %s", got)
	}
	if !Mismatched(lines) {
		t.Fatalf("textual difference 2 vs 2.000 should count as a mismatch")
	}
	if Mismatched(matchedLines()) {
		t.Fatalf("matched lines flagged")
	}
}

func TestBuildUpdate_AppliesDefaults(t *testing.T) {
	req := BuildUpdate("VEP1", true, matchedLines(), config.DefaultTable().TEG)
	if req.Token != "VEP1" || !req.IsLoadingCompleted || len(req.LoadingDetails) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	first, second := req.LoadingDetails[0], req.LoadingDetails[1]
	if first.BatchLineNo != "000010" || first.LineItem != "900001" || first.ActualWeight != "95" || first.ChargedWeight != "100.5" {
		t.Fatalf("source values should win: %+v", first)
	}
	if first.Quantity != "10" || first.BatchQuantity != "10" || first.LoadedQuantity != "10" || first.StorageLocation != "ZF05" {
		t.Fatalf("quantities not mapped: %+v", first)
	}
	if second.BatchLineNo != "900005" || second.LineItem != "000010" || second.ActualWeight != "1183.096" || second.ChargedWeight != "2127.870" {
		t.Fatalf("defaults not applied: %+v", second)
	}
}

func TestBuildMaterials(t *testing.T) {
	if BuildMaterials("VEP1", nil) != nil {
		t.Fatalf("expected nil for no materials")
	}
	if BuildMaterials("VEP1", []teg.AdditionalMaterial{{MaterialDescription: ""}, {MaterialDescription: "Husk"}}) != nil {
		t.Fatalf("expected nil when the first row names no material")
	}
	req := BuildMaterials("VEP1", []teg.AdditionalMaterial{{MaterialDescription: "Husk", ChargedWeight: "12", UOM: "KG"}})
	if req == nil || !req.IsLoadingCompleted || req.Token != "VEP1" || len(req.AdditionalMaterials) != 1 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestFetch(t *testing.T) {
	cases := []struct {
		name     string
		fetcher  *fakeFetcher
		lines    int
		mismatch bool
		errMsg   string
	}{
		{"matched", &fakeFetcher{lines: matchedLines()}, 2, false, ""},
		{"empty", &fakeFetcher{}, 0, false, "No data found for the provided VEP Token."},
		{"mismatch", &fakeFetcher{lines: []sap.LoadedLine{{Lfimg: "1", Prqty: "2", Brgew: "5"}}}, 1, true, "LFIMG and PRQTY fields do not match for all items."},
		{"upstream", &fakeFetcher{err: errors.New("Failed to fetch SAP data.")}, 0, false, "Failed to fetch SAP data."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(tc.fetcher, &fakeTEG{}, config.DefaultTable().TEG, nil, nil, nil)
			run := newGrossRun(t)
			if err := fetchWithin(t, svc, run, 5*time.Second); err != nil {
				t.Fatalf("fetch: %v", err)
			}
			st := run.Snapshot().Gross
			if len(st.Lines) != tc.lines || st.Mismatch != tc.mismatch || st.Error != tc.errMsg {
				t.Fatalf("unexpected state: %+v", st)
			}
		})
	}
}

// fetchWithin fails the test when Fetch does not return in time.
func fetchWithin(t *testing.T, svc *Service, run *workflow.Run, d time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- svc.Fetch(context.Background(), run)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatal("fetch did not return; run lock held")
		return nil
	}
}

func TestFetch_FailureLeavesRunUsable(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("Failed to fetch SAP data.")}
	svc := NewService(fetcher, &fakeTEG{}, config.DefaultTable().TEG, nil, nil, nil)
	run := newGrossRun(t)

	if err := fetchWithin(t, svc, run, 5*time.Second); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	snapped := make(chan workflow.Snapshot, 1)
	go func() {
		snapped <- run.Snapshot()
	}()
	select {
	case snap := <-snapped:
		if snap.Gross.Error != "Failed to fetch SAP data." || snap.VepToken != "VEP1" {
			t.Fatalf("unexpected snapshot after failed fetch: %+v", snap.Gross)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot blocked after failed fetch")
	}

	fetcher.err = nil
	fetcher.lines = matchedLines()
	if err := fetchWithin(t, svc, run, 5*time.Second); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if st := run.Snapshot().Gross; len(st.Lines) != 2 || st.Error != "" {
		t.Fatalf("expected refetch to recover: %+v", st)
	}
}

func TestSubmit_WithMaterials(t *testing.T) {
	db := openTestDB(t)
	tegFake := &fakeTEG{}
	svc := NewService(&fakeFetcher{lines: matchedLines()}, tegFake, config.DefaultTable().TEG, db, audit.NewService(), nil)
	run := newGrossRun(t)
	if err := svc.Fetch(context.Background(), run); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	attempt := workflow.GrossAttempt{Materials: []teg.AdditionalMaterial{{MaterialDescription: "Husk", ChargedWeight: "12", UOM: "KG"}}}
	if err := svc.Submit(context.Background(), run, attempt); err != nil {
		t.Fatalf("submit: %v", err)
	}
	st := run.Snapshot().Gross
	if !st.Completed || st.Error != "" {
		t.Fatalf("expected completed: %+v", st)
	}
	if len(tegFake.updates) != 1 || tegFake.updates[0].IsLoadingCompleted {
		t.Fatalf("update should carry isLoadingCompleted=false: %+v", tegFake.updates)
	}
	if len(tegFake.materials) != 1 || !tegFake.materials[0].IsLoadingCompleted {
		t.Fatalf("materials should always close the loading: %+v", tegFake.materials)
	}

	var rows []models.TegUpdate
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		var err error
		rows, err = ListTegUpdates(ctx, tx, "VEP1")
		return err
	})
	if err != nil {
		t.Fatalf("list teg updates: %v", err)
	}
	if len(rows) != 3 || rows[0].Step != StepAuth || rows[1].Step != StepUpdate || rows[2].Step != StepMaterials {
		t.Fatalf("unexpected teg updates: %+v", rows)
	}
	if !rows[2].Success || !strings.Contains(rows[2].RequestJSON, `"materialDescription":"Husk"`) {
		t.Fatalf("materials row: %+v", rows[2])
	}

	if err := svc.Submit(context.Background(), run, attempt); !errors.Is(err, ErrAlreadyDone) {
		t.Fatalf("expected ErrAlreadyDone, got %v", err)
	}
}

func TestSubmit_FailureThenRetry(t *testing.T) {
	tegFake := &fakeTEG{updateErr: errors.New("Failed to update TEG data")}
	svc := NewService(&fakeFetcher{lines: matchedLines()}, tegFake, config.DefaultTable().TEG, openTestDB(t), audit.NewService(), nil)
	run := newGrossRun(t)
	if err := svc.Retry(context.Background(), run); !errors.Is(err, ErrNoAttempt) {
		t.Fatalf("expected ErrNoAttempt, got %v", err)
	}
	if err := svc.Fetch(context.Background(), run); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if err := svc.Submit(context.Background(), run, workflow.GrossAttempt{IsCompleted: true}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	st := run.Snapshot().Gross
	if st.Completed || st.Error != "Failed to send TEG update." || st.LastAttempt == nil || !st.LastAttempt.IsCompleted {
		t.Fatalf("unexpected state after failure: %+v", st)
	}
	if err := svc.StartNew(context.Background(), run); !errors.Is(err, workflow.ErrStage) {
		t.Fatalf("start new must wait for completion, got %v", err)
	}

	tegFake.mu.Lock()
	tegFake.updateErr = nil
	tegFake.mu.Unlock()
	if err := svc.Retry(context.Background(), run); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !run.Snapshot().Gross.Completed || len(tegFake.updates) != 2 || !tegFake.updates[1].IsLoadingCompleted {
		t.Fatalf("retry should resend the same attempt")
	}
	if len(tegFake.materials) != 0 {
		t.Fatalf("no materials were requested")
	}

	if err := svc.StartNew(context.Background(), run); err != nil {
		t.Fatalf("start new: %v", err)
	}
	snap := run.Snapshot()
	if snap.Stage != workflow.StageLoading || snap.VepToken != "" || len(snap.Groups) != 0 {
		t.Fatalf("run not reset: %+v", snap)
	}
}

func TestSubmit_AuthFailure(t *testing.T) {
	tegFake := &fakeTEG{authErr: errors.New("no token received from TEG API")}
	svc := NewService(&fakeFetcher{lines: matchedLines()}, tegFake, config.DefaultTable().TEG, nil, nil, nil)
	run := newGrossRun(t)
	if err := svc.Fetch(context.Background(), run); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := svc.Submit(context.Background(), run, workflow.GrossAttempt{IsCompleted: true}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st := run.Snapshot().Gross; st.Error != "Failed to get TEG authentication token." || len(tegFake.updates) != 0 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestSubmit_MismatchBlocks(t *testing.T) {
	tegFake := &fakeTEG{}
	svc := NewService(&fakeFetcher{lines: []sap.LoadedLine{{Lfimg: "1", Prqty: "2"}}}, tegFake, config.DefaultTable().TEG, nil, nil, nil)
	run := newGrossRun(t)
	if err := svc.Submit(context.Background(), run, workflow.GrossAttempt{IsCompleted: true}); !errors.Is(err, ErrNotFetched) {
		t.Fatalf("expected ErrNotFetched, got %v", err)
	}
	if err := svc.Fetch(context.Background(), run); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := svc.Submit(context.Background(), run, workflow.GrossAttempt{IsCompleted: true}); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if tegFake.auths != 0 {
		t.Fatalf("mismatch must block before TEG is called")
	}
}

func TestSubmitCommandHandler_ParsesMaterials(t *testing.T) {
	tegFake := &fakeTEG{}
	svc := NewService(&fakeFetcher{lines: matchedLines()}, tegFake, config.DefaultTable().TEG, nil, nil, nil)
	run := newGrossRun(t)
	if err := svc.Fetch(context.Background(), run); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	form := url.Values{
		"mode":     {"materials"},
		"material": {"Ply 3mm", "", "Husk"},
		"weight":   {"4.5", "", "2"},
		"uom":      {"KG", "KG", "PC"},
	}
	req := httptest.NewRequest(http.MethodPost, "/gross/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(runcontext.NewContextWithRun(req.Context(), run))
	rr := httptest.NewRecorder()
	SubmitCommandHandler(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther || !strings.HasPrefix(rr.Header().Get("Location"), "/gross?status=") {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Header().Get("Location"))
	}
	if len(tegFake.materials) != 1 {
		t.Fatalf("expected one materials call")
	}
	got := tegFake.materials[0].AdditionalMaterials
	if len(got) != 2 || got[0].MaterialDescription != "Ply 3mm" || got[1].UOM != "PC" || got[1].ChargedWeight != "2" {
		t.Fatalf("unexpected materials: %+v", got)
	}
}

func TestSubmitCommandHandler_RejectsBadWeight(t *testing.T) {
	svc := NewService(&fakeFetcher{lines: matchedLines()}, &fakeTEG{}, config.DefaultTable().TEG, nil, nil, nil)
	run := newGrossRun(t)
	form := url.Values{"mode": {"materials"}, "material": {"Husk"}, "weight": {"heavy"}, "uom": {"KG"}}
	req := httptest.NewRequest(http.MethodPost, "/gross/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(runcontext.NewContextWithRun(req.Context(), run))
	rr := httptest.NewRecorder()
	SubmitCommandHandler(svc).ServeHTTP(rr, req)

	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if !strings.Contains(loc.Query().Get("error"), "additional material weight must be a number") {
		t.Fatalf("unexpected redirect %q", rr.Header().Get("Location"))
	}
}

func TestRenderLoadingSlipPDF(t *testing.T) {
	t.Parallel()

	pdf, err := RenderLoadingSlipPDF("2025-M251-1", matchedLines(), time.Date(2026, 2, 20, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf bytes")
	}
	if _, err := RenderLoadingSlipPDF("", matchedLines(), time.Now()); err == nil {
		t.Fatalf("expected error for blank token")
	}
}
