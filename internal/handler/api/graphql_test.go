package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Copilot/internal/domain/models"
	"Copilot/internal/repository"
	"Copilot/internal/usecase"
	"Copilot/pkg/auth"
	xlogger "Copilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubChart struct {
	res   *models.ChartDataResult
	calls int
}

func (s *stubChart) GetChartData(_ context.Context, ticker string) *models.ChartDataResult {
	s.calls++
	if s.res != nil {
		return s.res
	}
	return models.ChartFailure("Failed to load data for '" + ticker + "': boom")
}

type stubAutocomplete struct{}

func (stubAutocomplete) GetAutocomplete(_ context.Context, q string) *models.AutocompleteResult {
	return &models.AutocompleteResult{Success: true, Results: []models.SearchResult{
		{Symbol: "AAPL", Name: "Apple Inc.", CIK: "320193"},
		{Symbol: "CART", Name: "Maplebear Inc.", CIK: "1579091"},
	}}
}

func newGraphQLServer(t *testing.T, chart ChartDataService) (*echo.Echo, *auth.Issuer) {
	t.Helper()
	tokens, err := auth.NewIssuer(auth.TokenConfig{Secret: "s", AccessTTL: time.Minute})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	schema, err := NewSchema(chart, stubAutocomplete{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	users := repository.NewMemoryUserRepo()
	// id 1 is active, id 2 is deactivated.
	for _, u := range []models.User{{Username: "alice", IsActive: true}, {Username: "bob", IsActive: false}} {
		if _, err := users.Create(context.Background(), &u); err != nil {
			t.Fatalf("create %s: %v", u.Username, err)
		}
	}
	e := echo.New()
	NewGraphQLHandler(xlogger.Nop(), schema, tokens, usecase.AccountStatus(users)).RegisterRoutes(e)
	return e, tokens
}

func postQuery(t *testing.T, e *echo.Echo, token, query string) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

const chartQuery = `
{
    getChartData(ticker: "AAPL") {
        success
        message
        ticker
        ohlc { x y }
        volume { x y }
        squeeze { x y }
    }
}`

func TestGraphQLRequiresAuthentication(t *testing.T) {
	chart := &stubChart{}
	e, _ := newGraphQLServer(t, chart)

	out := postQuery(t, e, "", chartQuery)
	data := out["data"].(map[string]interface{})
	if data["getChartData"] != nil {
		t.Fatalf("expected null field, got %v", data["getChartData"])
	}
	errs := out["errors"].([]interface{})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	first := errs[0].(map[string]interface{})
	if first["message"] != MsgNotAuthenticated {
		t.Fatalf("unexpected message %v", first["message"])
	}
	if path := first["path"].([]interface{}); len(path) != 1 || path[0] != "getChartData" {
		t.Fatalf("unexpected path %v", first["path"])
	}
	if chart.calls != 0 {
		t.Fatalf("resolver must not run for anonymous callers")
	}

	out = postQuery(t, e, "forged.token.value", `{ getAutocomplete(query: "APL") { success } }`)
	if errs := out["errors"].([]interface{}); errs[0].(map[string]interface{})["message"] != MsgNotAuthenticated {
		t.Fatalf("invalid token must be treated as anonymous: %v", errs)
	}
}

func TestGraphQLRejectsTokensOfUnknownOrInactiveAccounts(t *testing.T) {
	chart := &stubChart{}
	e, tokens := newGraphQLServer(t, chart)

	for _, userID := range []int64{424242, 2} {
		access, _, err := tokens.Issue(userID, auth.AccessToken)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		out := postQuery(t, e, access, chartQuery)
		if data := out["data"].(map[string]interface{}); data["getChartData"] != nil {
			t.Fatalf("user %d: expected null field, got %v", userID, data["getChartData"])
		}
		errs, _ := out["errors"].([]interface{})
		if len(errs) != 1 || errs[0].(map[string]interface{})["message"] != MsgNotAuthenticated {
			t.Fatalf("user %d: unexpected errors %v", userID, out["errors"])
		}
	}
	if chart.calls != 0 {
		t.Fatalf("resolver ran %d times for rejected accounts", chart.calls)
	}
}

func TestGraphQLChartData(t *testing.T) {
	ticker := "AAPL"
	chart := &stubChart{res: &models.ChartDataResult{
		Success: true,
		Ticker:  &ticker,
		OHLC:    []models.OHLCPoint{{X: "2023-01-01", Y: [4]float64{100, 110, 90, 105}}},
		Volume:  []models.VolumePoint{{X: "2023-01-01", Y: 1000}},
		Squeeze: []models.SqueezePoint{{X: "2023-01-01", Y: [2]float64{1, math.NaN()}}},
	}}
	e, tokens := newGraphQLServer(t, chart)
	access, _, _ := tokens.Issue(1, auth.AccessToken)

	out := postQuery(t, e, access, chartQuery)
	if out["errors"] != nil {
		t.Fatalf("unexpected errors %v", out["errors"])
	}
	got := out["data"].(map[string]interface{})["getChartData"].(map[string]interface{})
	if got["success"] != true || got["message"] != nil || got["ticker"] != "AAPL" {
		t.Fatalf("unexpected envelope %v", got)
	}
	ohlc := got["ohlc"].([]interface{})[0].(map[string]interface{})
	if y := ohlc["y"].([]interface{}); len(y) != 4 || y[0] != 100.0 || y[3] != 105.0 {
		t.Fatalf("unexpected ohlc %v", ohlc)
	}
	sqz := got["squeeze"].([]interface{})[0].(map[string]interface{})["y"].([]interface{})
	if sqz[0] != 1.0 || sqz[1] != nil {
		t.Fatalf("NaN magnitude must serialize as null, got %v", sqz)
	}
}

func TestGraphQLChartDataFailure(t *testing.T) {
	e, tokens := newGraphQLServer(t, &stubChart{})
	access, _, _ := tokens.Issue(1, auth.AccessToken)

	got := postQuery(t, e, access, chartQuery)["data"].(map[string]interface{})["getChartData"].(map[string]interface{})
	if got["success"] != false || got["message"] != "Failed to load data for 'AAPL': boom" {
		t.Fatalf("unexpected envelope %v", got)
	}
	if got["ohlc"] != nil || got["volume"] != nil || got["squeeze"] != nil || got["ticker"] != nil {
		t.Fatalf("failed envelope must carry no series: %v", got)
	}
}

func TestGraphQLAutocomplete(t *testing.T) {
	e, tokens := newGraphQLServer(t, &stubChart{})
	access, _, _ := tokens.Issue(1, auth.AccessToken)

	out := postQuery(t, e, access, `{ getAutocomplete(query: "APL") { success message results { symbol name cik } } }`)
	got := out["data"].(map[string]interface{})["getAutocomplete"].(map[string]interface{})
	results := got["results"].([]interface{})
	if got["success"] != true || got["message"] != nil || len(results) != 2 {
		t.Fatalf("unexpected result %v", got)
	}
	if r := results[1].(map[string]interface{}); r["symbol"] != "CART" || r["cik"] != "1579091" {
		t.Fatalf("unexpected second match %v", r)
	}
}

func TestGraphQLBadRequests(t *testing.T) {
	e, _ := newGraphQLServer(t, &stubChart{})

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/graphql", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Must provide query string.") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
