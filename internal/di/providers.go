package di

import (
	"context"
	"fmt"
	"time"

	domrepo "Copilot/internal/domain/repository"
	domsvc "Copilot/internal/domain/service"
	"Copilot/internal/handler/api"
	internalrepo "Copilot/internal/repository"
	"Copilot/internal/service/earnings"
	"Copilot/internal/service/marketdata"
	"Copilot/internal/service/ratelimit"
	"Copilot/internal/service/symbols"
	"Copilot/internal/services/indicators"
	"Copilot/internal/usecase"
	"Copilot/pkg/auth"
	"Copilot/pkg/cache"
	pkgch "Copilot/pkg/clickhouse"
	"Copilot/pkg/config"
	xhttp "Copilot/pkg/http"
	pkgkafka "Copilot/pkg/kafka"
	applogger "Copilot/pkg/logger"
	"Copilot/pkg/metrics"
	"Copilot/pkg/postgres"
	"Copilot/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache returns Redis behind an in-process L1 when Redis is enabled,
// otherwise a process-local cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryCleanup(time.Minute))
		return mc, func() { _ = mc.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(10000),
		cache.WithLayeredMemoryTTL(5*time.Minute),
	)
	cleanup := func() {
		if err := lc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}
	return lc, cleanup, nil
}

// ProvideUserRepository connects to Postgres and applies the account schema,
// or falls back to the in-memory store for the memory driver.
func ProvideUserRepository(cfg *config.Config) (domrepo.UserRepository, func(), error) {
	if cfg.Database.Driver == "memory" {
		return internalrepo.NewMemoryUserRepo(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.Database.DSN,
		postgres.WithPoolSize(cfg.Database.MaxConns, cfg.Database.MinConns),
		postgres.WithConnLifetimes(cfg.Database.MaxConnIdleTime, cfg.Database.MaxConnLifetime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, pool, internalrepo.UserSchema); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres schema: %w", err)
	}
	return internalrepo.NewUserRepo(pool), pool.Close, nil
}

// ProvideMailer publishes mail to the Kafka outbox or logs it.
func ProvideMailer(cfg *config.Config, l *applogger.Logger) (domrepo.Mailer, func(), error) {
	if cfg.Mail.Backend != "kafka" {
		return internalrepo.NewLogMailer(l, cfg.Mail.From), func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	m := internalrepo.NewKafkaMailer(producer, cfg.Kafka.MailTopic, cfg.Mail.From)
	cleanup := func() {
		if err := m.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return m, cleanup, nil
}

// ProvideTokenIssuer creates the JWT issuer.
func ProvideTokenIssuer(cfg *config.Config) (*auth.Issuer, error) {
	return auth.NewIssuer(auth.TokenConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
}

// ProvideClickHouseBars connects to ClickHouse and ensures the bar table exists.
// It returns nil when neither the provider nor the archive needs it.
func ProvideClickHouseBars(cfg *config.Config, l *applogger.Logger) (*internalrepo.CHBarStore, func(), error) {
	if cfg.Providers.Historical != "clickhouse" && !cfg.ClickHouse.Archive {
		return nil, func() {}, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	store, err := internalrepo.NewCHBarStore(client, cfg.ClickHouse.Table)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, store.Schema()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, cleanup, nil
}

// ProvideHistoricalProvider selects the bar source named in config.
func ProvideHistoricalProvider(cfg *config.Config, bars *internalrepo.CHBarStore, l *applogger.Logger, m domrepo.Metrics) domrepo.HistoricalProvider {
	var p domrepo.HistoricalProvider
	switch cfg.Providers.Historical {
	case "clickhouse":
		return bars
	case "alpaca":
		p = marketdata.NewAlpaca(marketdata.AlpacaConfig{
			APIKey:    cfg.Providers.Alpaca.APIKey,
			APISecret: cfg.Providers.Alpaca.APISecret,
			Feed:      cfg.Providers.Alpaca.Feed,
		}, l, m)
	default:
		p = marketdata.NewYahoo(marketdata.YahooConfig{
			BaseURL:   cfg.Providers.Yahoo.BaseURL,
			UserAgent: cfg.Providers.Yahoo.UserAgent,
			Timeout:   cfg.Providers.Yahoo.Timeout,
		}, l, m)
	}
	if cfg.ClickHouse.Archive && bars != nil {
		return marketdata.NewArchiving(p, bars, l)
	}
	return p
}

// ProvideSqueeze creates the squeeze calculator from config.
func ProvideSqueeze(cfg *config.Config) domsvc.SqueezeCalculator {
	sq := cfg.Indicators.Squeeze
	c := indicators.DefaultSqueezeConfig()
	c.BBLength, c.BBStd = sq.BBLength, sq.BBStd
	c.KCLength, c.KCScalar = sq.KCLength, sq.KCScalar
	c.MomLength, c.MomSmooth = sq.MomLength, sq.MomSmooth
	return indicators.NewSqueeze(c)
}

// ProvideEarningsSource creates the Alpha Vantage earnings calendar client.
func ProvideEarningsSource(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) domsvc.EarningsSource {
	av := cfg.Providers.AlphaVantage
	return earnings.NewFetcher(earnings.Config{
		BaseURL: av.BaseURL,
		APIKey:  av.APIKey,
		Horizon: av.Horizon,
		Timeout: av.Timeout,
	}, l, m)
}

// ProvideSymbolDirectory creates the SEC company directory backed by the cache.
func ProvideSymbolDirectory(cfg *config.Config, c cache.Service, l *applogger.Logger, m domrepo.Metrics) domrepo.SymbolDirectory {
	sec := cfg.Providers.SEC
	return symbols.NewDirectory(symbols.Config{
		TickersURL: sec.TickersURL,
		UserAgent:  sec.UserAgent,
		CacheTTL:   sec.CacheTTL,
		Timeout:    sec.Timeout,
		MaxResults: sec.MaxResults,
	}, c, l, m)
}

// ProvideChartData creates the chart data use case.
func ProvideChartData(p domrepo.HistoricalProvider, sq domsvc.SqueezeCalculator, e domsvc.EarningsSource, l *applogger.Logger, m domrepo.Metrics) *usecase.ChartDataUseCase {
	return usecase.NewChartDataUseCase(p, sq, e, l, m)
}

// ProvideAutocomplete creates the autocomplete use case.
func ProvideAutocomplete(dir domrepo.SymbolDirectory, l *applogger.Logger, m domrepo.Metrics) *usecase.AutocompleteUseCase {
	return usecase.NewAutocompleteUseCase(dir, l, m)
}

// ProvideAuth creates the account use case.
func ProvideAuth(
	cfg *config.Config,
	users domrepo.UserRepository,
	tokens *auth.Issuer,
	store cache.Service,
	mailer domrepo.Mailer,
	l *applogger.Logger,
	m domrepo.Metrics,
) *usecase.AuthUseCase {
	return usecase.NewAuthUseCase(users, tokens, store, mailer, usecase.AuthConfig{
		EmailVerificationTTL: cfg.Auth.EmailVerificationTTL,
		PasswordResetTTL:     cfg.Auth.PasswordResetTTL,
		FrontendURL:          cfg.Auth.FrontendURL,
	}, l, m)
}

// ProvideGraphQLHandler builds the query schema and its HTTP handler.
func ProvideGraphQLHandler(l *applogger.Logger, chart *usecase.ChartDataUseCase, ac *usecase.AutocompleteUseCase, tokens *auth.Issuer, users domrepo.UserRepository) (*api.GraphQLHandler, error) {
	schema, err := api.NewSchema(chart, ac)
	if err != nil {
		return nil, fmt.Errorf("graphql schema: %w", err)
	}
	return api.NewGraphQLHandler(l, schema, tokens, usecase.AccountStatus(users)), nil
}

// ProvideAuthHandler mounts the account endpoints with credential throttling.
func ProvideAuthHandler(cfg *config.Config, l *applogger.Logger, uc *usecase.AuthUseCase, tokens *auth.Issuer, users domrepo.UserRepository) *api.AuthEchoHandler {
	return api.NewAuthEchoHandler(l, uc, tokens, usecase.AccountStatus(users), api.RateLimitConfig{
		Limiter:      ratelimit.New(),
		Capacity:     cfg.Auth.RateLimit.Capacity,
		RefillPerSec: cfg.Auth.RateLimit.RefillPerSec,
	})
}

// ProvideHTTPServer creates the Echo server with every handler and health check.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	gql *api.GraphQLHandler,
	authH *api.AuthEchoHandler,
	users domrepo.UserRepository,
	store cache.Service,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{gql, authH},
		xhttp.WithLogger(l),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequestThreshold(cfg.Server.SlowRequestThreshold),
		xhttp.WithCORS(cfg.Server.AllowOrigins),
		xhttp.WithDebug(cfg.Debug),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithHealthCheck("users", users.Ping),
		xhttp.WithHealthCheck("cache", store.Ping),
	)
}

// ProvideApp creates the application.
func ProvideApp(l *applogger.Logger, srv *xhttp.Server) *server.App {
	return server.New(l, srv)
}
