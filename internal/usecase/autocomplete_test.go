package usecase

import (
	"context"
	"errors"
	"testing"

	"Copilot/internal/domain/models"
)

type fakeDirectory struct {
	results []models.SearchResult
	err     error
	query   string
}

func (f *fakeDirectory) Search(_ context.Context, q string) ([]models.SearchResult, error) {
	f.query = q
	return f.results, f.err
}

func TestGetAutocomplete(t *testing.T) {
	dir := &fakeDirectory{results: []models.SearchResult{
		{Symbol: "AAPL", Name: "Apple Inc.", CIK: "320193"},
		{Symbol: "CART", Name: "Maplebear Inc.", CIK: "1579091"},
		{Symbol: "APLS", Name: "Apellis Pharmaceuticals, Inc.", CIK: "1492422"},
	}}
	uc := NewAutocompleteUseCase(dir, nil, nil)

	res := uc.GetAutocomplete(context.Background(), "APL")
	if !res.Success || res.Message != nil {
		t.Fatalf("unexpected envelope %+v", res)
	}
	if dir.query != "APL" {
		t.Fatalf("query must pass through unchanged, got %q", dir.query)
	}
	if len(res.Results) != 3 || res.Results[1].Symbol != "CART" || res.Results[2].CIK != "1492422" {
		t.Fatalf("provider order must be kept: %+v", res.Results)
	}
}

func TestGetAutocompleteShortQueryPassesThrough(t *testing.T) {
	dir := &fakeDirectory{}
	res := NewAutocompleteUseCase(dir, nil, nil).GetAutocomplete(context.Background(), "")
	if !res.Success || res.Results == nil || len(res.Results) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestGetAutocompleteError(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("sec request: timeout")}
	res := NewAutocompleteUseCase(dir, nil, nil).GetAutocomplete(context.Background(), "APL")
	if res.Success || res.Results != nil {
		t.Fatalf("failed result must carry no results: %+v", res)
	}
	if *res.Message != "Failed to load autocomplete results for 'APL': sec request: timeout" {
		t.Fatalf("unexpected message %q", *res.Message)
	}
}
