package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"dockout/frontend/gross"
	"dockout/frontend/picking"
	"dockout/frontend/transfer"
	"dockout/infrastructure/audit"
	"dockout/infrastructure/cache"
	"dockout/infrastructure/config"
	"dockout/infrastructure/locks"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/teg"
	"dockout/models"
)

// fakeSAP serves the OData endpoints the workflow uses.
type fakeSAP struct {
	mu          sync.Mutex
	stockMoves  []sap.StockMoveRequest
	pickings    []sap.PickingRequest
	pickingFail map[string]bool
}

func (f *fakeSAP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if user, pass, ok := r.BasicAuth(); !ok || user != "wms" || pass != "secret" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if strings.EqualFold(r.Header.Get("X-CSRF-Token"), "fetch") {
		w.Header().Set("X-CSRF-Token", "csrf-1")
		w.Header().Add("Set-Cookie", "SAP_SESSIONID=s1; path=/; HttpOnly")
		w.WriteHeader(http.StatusOK)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/ZWH/TokenDetailsSet("):
		_, _ = io.WriteString(w, tokenDetailsJSON)
	case r.Method == http.MethodPost && r.URL.Path == "/ZSTOCK/StockHeadSet":
		var req sap.StockMoveRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.stockMoves = append(f.stockMoves, req)
		var resp sap.StockMoveResponse
		resp.D.Dono = req.Dono
		for _, it := range req.OrderToItem {
			resp.D.OrderToItem.Results = append(resp.D.OrderToItem.Results, sap.StockMoveResultItem{
				Posnr:     it.Posnr,
				Matnr:     it.Matnr,
				Batch:     it.Batch,
				OldBatch:  it.Batch,
				Quantity:  it.Quantity,
				Uom:       it.Uom,
				ToStorage: it.ToStorage,
				VepToken:  it.VepToken,
				Message:   "Transfer posting Completed for DO " + req.Dono,
			})
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && r.URL.Path == "/ZWH/TokenDetailsSet":
		var req sap.PickingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.pickings = append(f.pickings, req)
		obd := ""
		if len(req.Getloadingsequence.Results) > 0 {
			obd = req.Getloadingsequence.Results[0].ObdNo
		}
		if f.pickingFail[obd] {
			f.pickingFail[obd] = false
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"d":{"rescode":"E","message":"Delivery locked by another user"}}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"d":{"rescode":"S","message":"Picking done"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/ZWH/LoadedDetailsSet":
		_, _ = io.WriteString(w, loadedDetailsJSON)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSAP) stockMoveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stockMoves)
}

func (f *fakeSAP) failPickingOnce(obd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pickingFail[obd] = true
}

const tokenDetailsJSON = `{"d":{"TokenNo":"VEP1","getloadingsequence":{"results":[
{"obd_no":"8001","LVSTK":"A","KOSTK":"A","posnr":"000010","matnr":"MAT-1","maktx":"Cement","lfimg":"10","charg":"B1","meins":"BAG","lgtyp":"EDO","lgort":"ZF01","werks":"1000","sequenceno":"1"},
{"obd_no":"8002","LVSTK":"A","KOSTK":"A","posnr":"000010","matnr":"MAT-2","maktx":"Sand","lfimg":"5","charg":"B2","meins":"BAG","lgtyp":"EDO","lgort":"ZF01","werks":"1000","sequenceno":"2"}
]}}}`

const loadedDetailsJSON = `{"d":{"results":[
{"tokenno":"VEP1","obd_no":"8001","posnr":"000010","lfimg":"10","prqty":"10","matnr":"MAT-1","charg":"B1","ntgew":"500","brgew":"510","lgort":"ZF01","werks":"1000"},
{"tokenno":"VEP1","obd_no":"8002","posnr":"000010","lfimg":"5","prqty":"5","matnr":"MAT-2","charg":"B2","ntgew":"250","brgew":"255.5","lgort":"ZF01","werks":"1000"}
]}}`

// fakeTEG serves the TEG auth and update endpoints.
type fakeTEG struct {
	mu      sync.Mutex
	updates []teg.UpdateRequest
}

func (f *fakeTEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/auth":
		_, _ = io.WriteString(w, `{"data":{"token":"teg-token-123"}}`)
	case "/update":
		if r.Header.Get("token") != "teg-token-123" {
			http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
			return
		}
		var req teg.UpdateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.updates = append(f.updates, req)
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	case "/materials":
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTEG) sentUpdates() []teg.UpdateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]teg.UpdateRequest(nil), f.updates...)
}

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
	sap    *fakeSAP
	teg    *fakeTEG
}

func setupIntegrationServer(t *testing.T) (*integrationEnv, *http.Client) {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "server-integration.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.ApplyMigrations(context.Background(), db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	sapFake := &fakeSAP{pickingFail: map[string]bool{}}
	sapSrv := httptest.NewServer(sapFake)
	tegFake := &fakeTEG{}
	tegSrv := httptest.NewServer(tegFake)

	sapClient := sap.NewClient(sap.Config{
		StockMoveURL:     sapSrv.URL + "/ZSTOCK/StockHeadSet",
		PickingURL:       sapSrv.URL + "/ZWH/TokenDetailsSet",
		LoadedDetailsURL: sapSrv.URL + "/ZWH/LoadedDetailsSet",
		Username:         "wms",
		Password:         "secret",
		Client:           "300",
	}, nil, 5*time.Second)
	tegClient := teg.NewClient(teg.Config{
		AuthURL:                tegSrv.URL + "/auth",
		UpdateURL:              tegSrv.URL + "/update",
		AdditionalMaterialsURL: tegSrv.URL + "/materials",
		Username:               "teg",
		Password:               "secret",
	}, nil, 5*time.Second)

	defaults := config.DefaultTable()
	auditSvc := audit.NewService()
	guard := locks.NewMemoryGuard()

	s := NewServer("127.0.0.1:0", db, cache.NewWorkflowRunCache(), auditSvc, Services{
		Tokens:   sapClient,
		Transfer: transfer.NewOrchestrator(sapClient, defaults.Picking, db, auditSvc, guard),
		Picking:  picking.NewOrchestrator(sapClient, db, auditSvc, guard),
		Gross:    gross.NewService(sapClient, tegClient, defaults.TEG, db, auditSvc, guard),
		Defaults: defaults,
	})
	ts := httptest.NewServer(s.Handler())
	env := &integrationEnv{server: ts, db: db, sap: sapFake, teg: tegFake}
	t.Cleanup(func() {
		env.server.Close()
		sapSrv.Close()
		tegSrv.Close()
		_ = env.db.Close()
	})

	return env, newHTTPClient(t)
}

func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, baseURL, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func postForm(t *testing.T, client *http.Client, baseURL, path string, data url.Values) *http.Response {
	t.Helper()
	if data == nil {
		data = url.Values{}
	}
	if token := csrfToken(t, client, baseURL); token != "" {
		data.Set("_csrf", token)
	}
	resp, err := client.PostForm(baseURL+path, data)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

// expectRedirect posts and checks the redirect target path and, when
// wantQuery is set, that the query contains it.
func expectRedirect(t *testing.T, resp *http.Response, wantPath, wantQuery string) {
	t.Helper()
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Path != wantPath {
		t.Fatalf("expected redirect to %s, got %s", wantPath, loc.String())
	}
	if wantQuery != "" && !strings.Contains(loc.RawQuery, wantQuery) {
		t.Fatalf("expected query containing %q, got %q", wantQuery, loc.RawQuery)
	}
}

func TestHealth(t *testing.T) {
	env, client := setupIntegrationServer(t)
	resp := get(t, client, env.server.URL, "/health")
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}
}

func TestRoot_RedirectsToCurrentStageAndSetsRunCookie(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/")
	expectRedirect(t, resp, "/loading", "")

	u, _ := url.Parse(env.server.URL)
	found := false
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "X-Dockout-Run" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected run cookie to be set")
	}
}

func TestPost_WithoutCSRFIsRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)
	_ = readBody(t, get(t, client, env.server.URL, "/loading"))

	resp, err := client.PostForm(env.server.URL+"/loading", url.Values{"vep_token": {"VEP1"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestStagePages_RedirectWhenOutOfOrder(t *testing.T) {
	env, client := setupIntegrationServer(t)
	for _, path := range []string{"/transfer", "/picking", "/gross"} {
		expectRedirect(t, get(t, client, env.server.URL, path), "/loading", "")
	}
}

func TestLoading_BlankTokenShowsError(t *testing.T) {
	env, client := setupIntegrationServer(t)
	_ = readBody(t, get(t, client, env.server.URL, "/loading"))

	resp := postForm(t, client, env.server.URL, "/loading", url.Values{"vep_token": {"  "}})
	expectRedirect(t, resp, "/loading", "error=Please+enter+a+VEP+Token.")
}

func TestFullWorkflow(t *testing.T) {
	env, client := setupIntegrationServer(t)
	base := env.server.URL
	_ = readBody(t, get(t, client, base, "/loading"))

	// Loading.
	expectRedirect(t, postForm(t, client, base, "/loading", url.Values{"vep_token": {"VEP1"}}), "/transfer", "")
	resp := get(t, client, base, "/transfer")
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "8001") || !strings.Contains(body, "8002") {
		t.Fatalf("expected transfer page with both delivery orders, got %d", resp.StatusCode)
	}

	// Leaving transfer early is refused.
	expectRedirect(t, postForm(t, client, base, "/transfer/complete", nil), "/transfer", "error=")

	// Transfer.
	expectRedirect(t, postForm(t, client, base, "/transfer/8001/submit", nil), "/transfer", "status=")
	expectRedirect(t, postForm(t, client, base, "/transfer/all", nil), "/transfer", "status=")
	if n := env.sap.stockMoveCount(); n != 2 {
		t.Fatalf("expected 2 stock moves, got %d", n)
	}
	expectRedirect(t, postForm(t, client, base, "/transfer/complete", nil), "/picking", "")

	// Picking: 8002 fails once, then the retry succeeds.
	env.sap.failPickingOnce("8002")
	expectRedirect(t, postForm(t, client, base, "/picking/all", nil), "/picking", "")
	expectRedirect(t, postForm(t, client, base, "/picking/complete", nil), "/picking", "error=")
	expectRedirect(t, postForm(t, client, base, "/picking/8002/confirm", nil), "/picking", "status=")
	expectRedirect(t, postForm(t, client, base, "/picking/complete", nil), "/gross", "")

	// Gross.
	resp = get(t, client, base, "/gross/slip.pdf")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected slip to be unavailable before submission, got %d", resp.StatusCode)
	}
	expectRedirect(t, postForm(t, client, base, "/gross/fetch", nil), "/gross", "")
	resp = get(t, client, base, "/gross")
	body = readBody(t, resp)
	if !strings.Contains(body, "765.5") {
		t.Fatalf("expected total gross weight 765.5 on gross page")
	}
	expectRedirect(t, postForm(t, client, base, "/gross/submit", url.Values{"mode": {"complete"}}), "/gross", "status=")
	updates := env.teg.sentUpdates()
	if len(updates) != 1 || !updates[0].IsLoadingCompleted || len(updates[0].LoadingDetails) != 2 {
		t.Fatalf("unexpected teg updates: %+v", updates)
	}

	resp = get(t, client, base, "/gross/slip.pdf")
	slip := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(slip, "%PDF") {
		t.Fatalf("expected loading slip pdf, got %d", resp.StatusCode)
	}

	expectRedirect(t, postForm(t, client, base, "/gross/start-new", nil), "/loading", "")
	expectRedirect(t, get(t, client, base, "/"), "/loading", "")

	var pickingLogs, transferLogs, audits int
	err := env.db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		var err error
		if pickingLogs, err = tx.NewSelect().Model((*models.PickingLog)(nil)).Count(ctx); err != nil {
			return err
		}
		if transferLogs, err = tx.NewSelect().Model((*models.TransferLog)(nil)).Count(ctx); err != nil {
			return err
		}
		audits, err = tx.NewSelect().Model((*models.AuditLog)(nil)).Where("al.action = ?", "run_restarted").Count(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if pickingLogs != 3 || transferLogs != 2 || audits != 1 {
		t.Fatalf("expected 3 picking logs, 2 transfer logs, 1 restart audit; got %d, %d, %d", pickingLogs, transferLogs, audits)
	}

	resp = get(t, client, base, "/exports/picking-logs.csv?token=VEP1")
	csvBody := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || strings.Count(csvBody, "\n") != 4 {
		t.Fatalf("expected picking csv with 3 rows, got %d:\n%s", resp.StatusCode, csvBody)
	}
}

func TestHelpPage(t *testing.T) {
	env, client := setupIntegrationServer(t)
	resp := get(t, client, env.server.URL, "/help")
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Stock Transfer") {
		t.Fatalf("unexpected help page %d", resp.StatusCode)
	}
}
