package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"Copilot/internal/domain/repository"
	xhttp "Copilot/pkg/http"
	applogger "Copilot/pkg/logger"
)

// httpBase is shared by the HTTP-backed providers: one client, one retry
// policy, uniform logging and metrics.
type httpBase struct {
	name     string
	client   *xhttp.Client
	l        *applogger.Logger
	metrics  repository.Metrics
	attempts int
}

func newHTTPBase(name string, timeout time.Duration, l *applogger.Logger, m repository.Metrics) httpBase {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return httpBase{
		name:     name,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:        l.With(applogger.String("provider", name)),
		metrics:  m,
		attempts: 2,
	}
}

// get issues a GET and decodes into dest, retrying transient failures.
func (b *httpBase) get(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	opts.Method = xhttp.MethodGet
	start := time.Now()

	err := b.getWithRetry(ctx, opts, dest)

	if b.metrics != nil {
		b.metrics.RecordProviderCall(b.name, err == nil)
		b.metrics.RecordLatency(b.name+"_request", time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("%s request: %w", b.name, err)
	}
	return nil
}

func (b *httpBase) getWithRetry(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error {
	var err error
	for i := 1; i <= b.attempts; i++ {
		err = b.client.SendAndParse(ctx, opts, dest)
		if err == nil || !transient(err) || i == b.attempts {
			return err
		}
		b.l.Debug("retrying provider request", applogger.Int("attempt", i), applogger.Error(err))
		select {
		case <-time.After(time.Duration(i) * 200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// transient reports whether a retry may help: network failures, 429 and 5xx.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
