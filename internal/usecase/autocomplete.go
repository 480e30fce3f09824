package usecase

import (
	"context"
	"fmt"
	"time"

	"Copilot/internal/domain/models"
	domrepo "Copilot/internal/domain/repository"
	applogger "Copilot/pkg/logger"
)

// AutocompleteUseCase searches the symbol directory.
type AutocompleteUseCase struct {
	dir     domrepo.SymbolDirectory
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewAutocompleteUseCase(dir domrepo.SymbolDirectory, l *applogger.Logger, m domrepo.Metrics) *AutocompleteUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	return &AutocompleteUseCase{dir: dir, l: l, metrics: m}
}

// GetAutocomplete returns matches for query in directory order.
func (uc *AutocompleteUseCase) GetAutocomplete(ctx context.Context, query string) (res *models.AutocompleteResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = uc.fail(query, fmt.Errorf("%v", r))
		}
		if uc.metrics != nil {
			uc.metrics.RecordLatency("autocomplete", time.Since(start).Seconds())
		}
	}()

	matches, err := uc.dir.Search(ctx, query)
	if err != nil {
		return uc.fail(query, err)
	}
	if matches == nil {
		matches = []models.SearchResult{}
	}
	return &models.AutocompleteResult{Success: true, Results: matches}
}

func (uc *AutocompleteUseCase) fail(query string, err error) *models.AutocompleteResult {
	uc.l.Warn("autocomplete failed", applogger.String("query", query), applogger.Error(err))
	if uc.metrics != nil {
		uc.metrics.RecordError("autocomplete")
	}
	msg := fmt.Sprintf("Failed to load autocomplete results for '%s': %s", query, err.Error())
	return &models.AutocompleteResult{Success: false, Message: &msg}
}
