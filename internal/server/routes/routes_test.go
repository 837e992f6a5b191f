package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/pkg/ai/stub"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/graph"
	"github.com/turkwise/graphmem/pkg/store/memory"
	"github.com/turkwise/graphmem/pkg/tenant"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

func newTestApp(t *testing.T) (*echo.Echo, *middleware.App) {
	t.Helper()
	storage := memory.NewMemoryStorage()
	aiClient := stub.NewClient(64)
	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Store:           storage,
		AI:              aiClient,
		UnitTokens:      200,
		RetryBackoff:    time.Millisecond,
		MaxContentBytes: 4096,
		SearchMaxLimit:  20,
		StrategyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}

	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	app := &middleware.App{
		Store:    storage,
		AiClient: aiClient,
		Graph:    graphClient,
		Resolver: tenant.NewResolver("turkwise_"),
	}
	return e, app
}

func request(
	t *testing.T,
	e *echo.Echo,
	app *middleware.App,
	method, target, body string,
	handler echo.HandlerFunc,
	pathParams map[string]string,
) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range pathParams {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	cc := &middleware.AppContext{Context: c, App: app}
	if err := handler(cc); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestIngestEpisodeHandler(t *testing.T) {
	e, app := newTestApp(t)

	body := `{"tenant_id":"acme","content":"Customer asked ACME about order #42 and the delayed delivery.","episode_type":"conversation"}`
	rec := request(t, e, app, http.MethodPost, "/episodes", body, IngestEpisodeHandler, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Result *graph.IngestResult `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result == nil || resp.Result.EntityCount == 0 {
		t.Errorf("expected extracted entities: %s", rec.Body.String())
	}
}

func TestIngestEpisodeHandlerRejectsBadTenant(t *testing.T) {
	e, app := newTestApp(t)

	body := `{"tenant_id":"bad tenant!","content":"hello there."}`
	rec := request(t, e, app, http.MethodPost, "/episodes", body, IngestEpisodeHandler, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid tenant id accepted: %d", rec.Code)
	}
}

func TestIngestEpisodeHandlerRejectsEmptyBody(t *testing.T) {
	e, app := newTestApp(t)

	rec := request(t, e, app, http.MethodPost, "/episodes", `{"tenant_id":"acme"}`, IngestEpisodeHandler, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing content accepted: %d", rec.Code)
	}
}

func TestIngestEpisodeHandlerRejectsBlankContent(t *testing.T) {
	e, app := newTestApp(t)

	// Whitespace passes the required-field check but has nothing to extract.
	body := `{"tenant_id":"acme","content":"   \n"}`
	rec := request(t, e, app, http.MethodPost, "/episodes", body, IngestEpisodeHandler, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank content returned %d, want 400: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "invalid_content" {
		t.Errorf("error kind = %q, want invalid_content", resp.Error)
	}
}

func TestSearchHandlerEndToEnd(t *testing.T) {
	e, app := newTestApp(t)

	ingestBody := `{"tenant_id":"acme","content":"Customer asked ACME about order #42 and the delayed delivery."}`
	rec := request(t, e, app, http.MethodPost, "/episodes", ingestBody, IngestEpisodeHandler, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest returned %d", rec.Code)
	}

	rec = request(t, e, app, http.MethodPost, "/search",
		`{"tenant_id":"acme","query":"delivery","limit":5}`, SearchHandler, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []common.SearchResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Error("expected search results")
	}

	// Another tenant sees nothing.
	rec = request(t, e, app, http.MethodPost, "/search",
		`{"tenant_id":"other","query":"delivery","limit":5}`, SearchHandler, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search returned %d", rec.Code)
	}
	resp.Results = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("tenant isolation violated: %v", resp.Results)
	}
}

func TestPurgeTenantHandlerRequiresConfirm(t *testing.T) {
	e, app := newTestApp(t)

	rec := request(t, e, app, http.MethodDelete, "/tenant/acme", "", PurgeTenantHandler,
		map[string]string{"tenant_id": "acme"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("purge without confirm accepted: %d", rec.Code)
	}

	rec = request(t, e, app, http.MethodDelete, "/tenant/acme?confirm=true", "", PurgeTenantHandler,
		map[string]string{"tenant_id": "acme"})
	if rec.Code != http.StatusOK {
		t.Errorf("confirmed purge failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Deleted {
		t.Errorf("confirmed purge should report deleted: %s", rec.Body.String())
	}
}

func TestGetStatsHandler(t *testing.T) {
	e, app := newTestApp(t)

	ingestBody := `{"tenant_id":"acme","content":"Alice Smith works at ACME Logistics."}`
	request(t, e, app, http.MethodPost, "/episodes", ingestBody, IngestEpisodeHandler, nil)

	rec := request(t, e, app, http.MethodGet, "/stats/acme", "", GetStatsHandler,
		map[string]string{"tenant_id": "acme"})
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var resp struct {
		Stats common.TenantStats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Stats.EpisodeCount != 1 {
		t.Errorf("expected 1 episode, got %+v", resp.Stats)
	}
}
