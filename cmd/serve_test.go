package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"supplyguard/internal/errs"
	lockinfra "supplyguard/internal/infrastructure/lock"
	"supplyguard/internal/infrastructure/persistence/gormdb/model"
	gormrepo "supplyguard/internal/infrastructure/persistence/gormdb/repository"
	gormuow "supplyguard/internal/infrastructure/persistence/gormdb/uow"
	"supplyguard/internal/usecase/issues"
	"supplyguard/internal/usecase/pipeline"
	"supplyguard/internal/usecase/planning"
	"supplyguard/internal/usecase/sop"
)

func testNow() time.Time {
	return time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
}

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "api.sqlite")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	seed := []any{
		&[]model.BOMLine{
			{Model: "S1_V1", PartID: "P300", PartName: "Frame", QuantityNeeded: 1},
			{Model: "S1_V1", PartID: "P301", PartName: "Wheel", QuantityNeeded: 2},
		},
		&[]model.StockLevel{
			{PartID: "P300", PartName: "Frame", Location: "WH1", QuantityAvailable: 10, Status: "ok"},
			{PartID: "P301", PartName: "Wheel", Location: "WH1", QuantityAvailable: 100, Status: "ok"},
		},
		&[]model.MaterialOrder{
			{OrderID: "O5007", PartID: "P300", QuantityOrdered: 50, OrderDate: "2025-04-01", ExpectedDeliveryDate: "2025-04-20", SupplierID: "SUP1", Status: "ordered"},
		},
	}
	for _, rows := range seed {
		if err := db.Create(rows).Error; err != nil {
			t.Fatalf("seed %T: %v", rows, err)
		}
	}

	issueSvc := issues.NewService(gormrepo.NewIssueRepository(db), gormuow.NewUnitOfWork(db), lockinfra.NewLocalLocker(), issues.Options{Now: testNow})
	planningSvc := planning.NewService(gormrepo.NewInventoryRepository(db), planning.Options{Now: testNow})
	events := pipeline.New(sop.NewDispatcher(sop.DefaultProfile(), planningSvc), issueSvc, nil, testNow)

	return newAPIHandler(context.Background(), apiServices{
		Issues:   issueSvc,
		Planning: planningSvc,
		Events:   events,
		Today:    testNow,
	})
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", resp.Body.String(), err)
	}
	return out
}

func TestAPIEventEscalatesAndIsReadable(t *testing.T) {
	h := newTestAPI(t)

	resp := doRequest(t, h, http.MethodPost, "/events", `{"intent":"QUALITY_ALERT","risk_score":5,"part_id":"P300","reasoning":"cracked frames"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /events status = %d body=%s", resp.Code, resp.Body.String())
	}
	outcome := decodeJSON[pipeline.Outcome](t, resp)
	if !outcome.Escalated || outcome.Issue == nil || outcome.Issue.IssueID != "ISS-20250410-001" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Event.SourceReference != "http" {
		t.Fatalf("source reference = %q", outcome.Event.SourceReference)
	}

	resp = doRequest(t, h, http.MethodGet, "/issues/ISS-20250410-001", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET issue status = %d body=%s", resp.Code, resp.Body.String())
	}
	got := decodeJSON[issues.Issue](t, resp)
	if got.Severity != "CRITICAL" || got.Status != "OPEN" {
		t.Fatalf("issue = %+v", got)
	}

	resp = doRequest(t, h, http.MethodGet, "/actions", "")
	actions := decodeJSON[[]actionEntryResponse](t, resp)
	if len(actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(actions))
	}
	if !strings.HasPrefix(actions[0].Text, "[09:00:00] QUALITY_ALERT (5/5) → ") {
		t.Fatalf("action text = %q", actions[0].Text)
	}

	resp = doRequest(t, h, http.MethodGet, "/issues", "")
	list := decodeJSON[[]issues.Issue](t, resp)
	if len(list) != 1 {
		t.Fatalf("active issues = %d", len(list))
	}
}

func TestAPIIssueLifecycleErrors(t *testing.T) {
	h := newTestAPI(t)

	resp := doRequest(t, h, http.MethodPost, "/issues", `{"title":"Check frame supplier","severity":"high"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("POST /issues status = %d body=%s", resp.Code, resp.Body.String())
	}
	created := decodeJSON[issues.Issue](t, resp)

	resp = doRequest(t, h, http.MethodPost, "/issues/"+created.IssueID+"/resolve", `{"notes":"supplier replaced"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("resolve status = %d body=%s", resp.Code, resp.Body.String())
	}

	resp = doRequest(t, h, http.MethodPost, "/issues/"+created.IssueID+"/status", `{"status":"OPEN"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("reopen status = %d, want 409", resp.Code)
	}

	resp = doRequest(t, h, http.MethodPost, "/issues/"+created.IssueID+"/status", `{"status":"DONE"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad status = %d, want 400", resp.Code)
	}

	resp = doRequest(t, h, http.MethodGet, "/issues/ISS-20990101-001", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing issue status = %d, want 404", resp.Code)
	}

	resp = doRequest(t, h, http.MethodPost, "/events", `{"intent":"DELAY","risk_score":9}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad event status = %d, want 400", resp.Code)
	}

	resp = doRequest(t, h, http.MethodGet, "/issues/search", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("blank search status = %d, want 400", resp.Code)
	}
}

func TestAPIPlanningEndpoints(t *testing.T) {
	h := newTestAPI(t)

	resp := doRequest(t, h, http.MethodGet, "/fulfillment?model=S1_V1&quantity=40&date=2025-04-30", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("fulfillment status = %d body=%s", resp.Code, resp.Body.String())
	}
	report := decodeJSON[planning.FeasibilityReport](t, resp)
	if !report.Feasible {
		t.Fatalf("report = %+v, want feasible with incoming O5007", report)
	}

	resp = doRequest(t, h, http.MethodGet, "/fulfillment?model=S9_V9&quantity=1&date=2025-04-30", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown model status = %d, want 404", resp.Code)
	}

	resp = doRequest(t, h, http.MethodGet, "/fulfillment?model=S1_V1&quantity=many", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad quantity status = %d, want 400", resp.Code)
	}

	resp = doRequest(t, h, http.MethodGet, "/safety-stock?lead_time=10&demand=20", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "69.22") {
		t.Fatalf("safety stock status = %d body=%s", resp.Code, resp.Body.String())
	}

	resp = doRequest(t, h, http.MethodGet, "/parts/P300/usage", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("usage status = %d body=%s", resp.Code, resp.Body.String())
	}
	usage := decodeJSON[planning.UsageReport](t, resp)
	if usage.OnHand != 10 || usage.PendingInbound != 50 {
		t.Fatalf("usage = %+v", usage)
	}

	resp = doRequest(t, h, http.MethodGet, "/parts/low-stock", "")
	alerts := decodeJSON[[]planning.LowStockAlert](t, resp)
	if len(alerts) != 1 || alerts[0].PartID != "P300" || alerts[0].Urgency != "CRITICAL" {
		t.Fatalf("alerts = %+v", alerts)
	}
}

func TestHTTPStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{errs.Invalid("bad"), http.StatusBadRequest},
		{errs.Wrap(errs.ErrInvalidStatus, "parse"), http.StatusBadRequest},
		{errs.Wrap(errs.ErrNotFound, "get"), http.StatusNotFound},
		{errs.ErrUnknownModel, http.StatusNotFound},
		{errs.Wrap(errs.ErrInvalidTransition, "move"), http.StatusConflict},
		{errs.Unavailable(errors.New("disk"), "read"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		if got := httpStatusFor(tc.err); got != tc.want {
			t.Fatalf("httpStatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestClassifiedEventSchemaRequiresIntentAndScore(t *testing.T) {
	schema := classifiedEventSchema()
	if len(schema.Required) != 2 {
		t.Fatalf("required = %v", schema.Required)
	}
	if _, ok := schema.Properties.Get("risk_score"); !ok {
		t.Fatalf("risk_score property missing")
	}
}
