package symbols

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"Copilot/internal/domain/models"
	"Copilot/internal/domain/repository"
	"Copilot/pkg/cache"
	xhttp "Copilot/pkg/http"
	applogger "Copilot/pkg/logger"
)

const cacheKey = "symbols:sec:company_tickers"

// Config configures the SEC symbol directory.
type Config struct {
	TickersURL string
	// UserAgent must identify the caller; SEC rejects anonymous clients.
	UserAgent  string
	CacheTTL   time.Duration
	Timeout    time.Duration
	MaxResults int
}

// Directory searches the SEC company ticker list.
type Directory struct {
	cfg     Config
	client  *xhttp.Client
	cache   cache.Service
	l       *applogger.Logger
	metrics repository.Metrics
}

// Company is one entry of the ticker list.
type Company struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// NewDirectory creates a Directory. The downloaded list is kept in c.
func NewDirectory(cfg Config, c cache.Service, l *applogger.Logger, m repository.Metrics) *Directory {
	if cfg.TickersURL == "" {
		cfg.TickersURL = "https://www.sec.gov/files/company_tickers.json"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Directory{
		cfg:     cfg,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		cache:   c,
		l:       l.With(applogger.String("provider", "sec")),
		metrics: m,
	}
}

// Search returns companies whose ticker or name contains query, case
// insensitively, in the order SEC publishes them.
func (d *Directory) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	companies, err := cache.GetOrLoad(ctx, d.cache, cacheKey, d.cfg.CacheTTL, d.download)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.SearchResult{}
	for _, c := range companies {
		if !strings.Contains(strings.ToLower(c.Ticker), q) && !strings.Contains(strings.ToLower(c.Title), q) {
			continue
		}
		out = append(out, models.SearchResult{
			Symbol: c.Ticker,
			Name:   c.Title,
			CIK:    strconv.FormatInt(c.CIK, 10),
		})
		if d.cfg.MaxResults > 0 && len(out) == d.cfg.MaxResults {
			break
		}
	}
	return out, nil
}

// download fetches the ticker list. The document is an object keyed by
// "0", "1", ...; entries are returned in key order.
func (d *Directory) download(ctx context.Context) ([]Company, error) {
	start := time.Now()
	var raw map[string]Company
	err := d.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     d.cfg.TickersURL,
		Headers: map[string]string{"User-Agent": d.cfg.UserAgent, "Accept": "application/json"},
	}, &raw)
	if d.metrics != nil {
		d.metrics.RecordProviderCall("sec", err == nil)
		d.metrics.RecordLatency("sec_request", time.Since(start).Seconds())
	}
	if err != nil {
		d.l.Warn("ticker list download failed", applogger.Error(err))
		return nil, fmt.Errorf("sec request: %w", err)
	}

	type keyed struct {
		idx int
		c   Company
	}
	entries := make([]keyed, 0, len(raw))
	for k, c := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("sec: unexpected key %q", k)
		}
		entries = append(entries, keyed{idx: idx, c: c})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	out := make([]Company, len(entries))
	for i, e := range entries {
		out[i] = e.c
	}
	d.l.Info("ticker list loaded", applogger.Int("companies", len(out)), applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}
