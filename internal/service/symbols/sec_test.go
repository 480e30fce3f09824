package symbols

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"Copilot/pkg/cache"
)

const tickersJSON = `{
"2":{"cik_str":1492422,"ticker":"APLS","title":"Apellis Pharmaceuticals, Inc."},
"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."},
"1":{"cik_str":1579091,"ticker":"CART","title":"Maplebear Inc."},
"10":{"cik_str":789019,"ticker":"MSFT","title":"MICROSOFT CORP"},
"3":{"cik_str":1418121,"ticker":"APLE","title":"Apple Hospitality REIT, Inc."}
}`

func newTestDirectory(t *testing.T, maxResults int) (*Directory, *int32, *string) {
	t.Helper()
	var calls int32
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(tickersJSON))
	}))
	t.Cleanup(srv.Close)

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	d := NewDirectory(Config{TickersURL: srv.URL, UserAgent: "Copilot admin@example.com", MaxResults: maxResults}, mc, nil, nil)
	return d, &calls, &ua
}

func TestSearchMatchesTickerAndNameInOrder(t *testing.T) {
	d, calls, ua := newTestDirectory(t, 0)

	got, err := d.Search(context.Background(), "apl")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"AAPL", "CART", "APLS", "APLE"}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %+v", len(want), got)
	}
	for i, s := range want {
		if got[i].Symbol != s {
			t.Fatalf("result %d: want %s got %s", i, s, got[i].Symbol)
		}
	}
	if got[0].Name != "Apple Inc." || got[0].CIK != "320193" {
		t.Fatalf("unexpected first result %+v", got[0])
	}
	if !strings.HasPrefix(*ua, "Copilot") {
		t.Fatalf("expected user agent to be sent, got %q", *ua)
	}

	if _, err := d.Search(context.Background(), "MSFT"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("expected the ticker list to be cached, got %d downloads", *calls)
	}
}

func TestSearchLimitAndNoMatch(t *testing.T) {
	d, _, _ := newTestDirectory(t, 2)

	got, err := d.Search(context.Background(), "apl")
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 results, got %d %v", len(got), err)
	}
	got, err = d.Search(context.Background(), "zzzz")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v %v", got, err)
	}
}

func TestSearchPropagatesDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	mc := cache.NewMemoryCache()
	defer mc.Close()
	d := NewDirectory(Config{TickersURL: srv.URL}, mc, nil, nil)
	if _, err := d.Search(context.Background(), "AAPL"); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
