package api

import (
	"context"
	"errors"
	"math"
	"time"

	"Copilot/internal/domain/models"
	gqlmetrics "Copilot/internal/service/metrics"
	"Copilot/pkg/auth"

	"github.com/graphql-go/graphql"
)

// MsgNotAuthenticated is the query error for anonymous callers.
const MsgNotAuthenticated = "Authentication credentials were not provided or are invalid"

var errNotAuthenticated = errors.New(MsgNotAuthenticated)

// ChartDataService resolves getChartData.
type ChartDataService interface {
	GetChartData(ctx context.Context, ticker string) *models.ChartDataResult
}

// AutocompleteService resolves getAutocomplete.
type AutocompleteService interface {
	GetAutocomplete(ctx context.Context, query string) *models.AutocompleteResult
}

var (
	seriesPointType = graphql.NewObject(graphql.ObjectConfig{
		Name: "SeriesPoint",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.String},
			"y": &graphql.Field{Type: graphql.NewList(graphql.Float)},
		},
	})

	scalarPointType = graphql.NewObject(graphql.ObjectConfig{
		Name: "ScalarPoint",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.String},
			"y": &graphql.Field{Type: graphql.Float},
		},
	})

	keltnerBandType = graphql.NewObject(graphql.ObjectConfig{
		Name: "KeltnerBand",
		Fields: graphql.Fields{
			"scalar": &graphql.Field{Type: graphql.Float},
			"points": &graphql.Field{Type: graphql.NewList(seriesPointType)},
		},
	})

	earningsEventType = graphql.NewObject(graphql.ObjectConfig{
		Name: "EarningsEvent",
		Fields: graphql.Fields{
			"x":                &graphql.Field{Type: graphql.String},
			"fiscalDateEnding": &graphql.Field{Type: graphql.String},
			"estimate":         &graphql.Field{Type: graphql.String},
			"currency":         &graphql.Field{Type: graphql.String},
		},
	})

	chartDataType = graphql.NewObject(graphql.ObjectConfig{
		Name: "ChartData",
		Fields: graphql.Fields{
			"success":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"message":  &graphql.Field{Type: graphql.String},
			"ticker":   &graphql.Field{Type: graphql.String},
			"ohlc":     &graphql.Field{Type: graphql.NewList(seriesPointType)},
			"volume":   &graphql.Field{Type: graphql.NewList(scalarPointType)},
			"squeeze":  &graphql.Field{Type: graphql.NewList(seriesPointType)},
			"keltner":  &graphql.Field{Type: graphql.NewList(keltnerBandType)},
			"earnings": &graphql.Field{Type: graphql.NewList(earningsEventType)},
		},
	})

	symbolMatchType = graphql.NewObject(graphql.ObjectConfig{
		Name: "SymbolMatch",
		Fields: graphql.Fields{
			"symbol": &graphql.Field{Type: graphql.String},
			"name":   &graphql.Field{Type: graphql.String},
			"cik":    &graphql.Field{Type: graphql.String},
		},
	})

	autocompleteType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Autocomplete",
		Fields: graphql.Fields{
			"success": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"message": &graphql.Field{Type: graphql.String},
			"results": &graphql.Field{Type: graphql.NewList(symbolMatchType)},
		},
	})
)

// NewSchema builds the query schema. Both fields require an authenticated caller.
func NewSchema(chart ChartDataService, ac AutocompleteService) (graphql.Schema, error) {
	gqlmetrics.Register()

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getChartData": &graphql.Field{
				Type: chartDataType,
				Args: graphql.FieldConfigArgument{
					"ticker": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: authenticated("getChartData", func(p graphql.ResolveParams) (interface{}, bool) {
					ticker, _ := p.Args["ticker"].(string)
					res := chart.GetChartData(p.Context, ticker)
					return chartDataValue(res), res.Success
				}),
			},
			"getAutocomplete": &graphql.Field{
				Type: autocompleteType,
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: authenticated("getAutocomplete", func(p graphql.ResolveParams) (interface{}, bool) {
					q, _ := p.Args["query"].(string)
					res := ac.GetAutocomplete(p.Context, q)
					return autocompleteValue(res), res.Success
				}),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// authenticated guards a resolver and records its latency and outcome.
func authenticated(field string, fn func(graphql.ResolveParams) (interface{}, bool)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		ctx := p.Context
		if ctx == nil {
			ctx = context.Background()
			p.Context = ctx
		}
		if _, ok := auth.FromContext(ctx); !ok {
			gqlmetrics.ResolverFailures.WithLabelValues(field, "unauthenticated").Inc()
			return nil, errNotAuthenticated
		}

		start := time.Now()
		v, ok := fn(p)
		gqlmetrics.ResolverLatency.WithLabelValues(field).Observe(time.Since(start).Seconds())
		if !ok {
			gqlmetrics.ResolverFailures.WithLabelValues(field, "unsuccessful").Inc()
		}
		return v, nil
	}
}

// float maps NaN, which JSON cannot carry, to null.
func float(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floats(vs []float64) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = float(v)
	}
	return out
}

func point(x string, y []float64) map[string]interface{} {
	return map[string]interface{}{"x": x, "y": floats(y)}
}

func chartDataValue(res *models.ChartDataResult) map[string]interface{} {
	out := map[string]interface{}{
		"success": res.Success,
		"message": res.Message,
		"ticker":  res.Ticker,
	}
	if !res.Success {
		return out
	}

	ohlc := make([]interface{}, len(res.OHLC))
	for i, p := range res.OHLC {
		ohlc[i] = point(p.X, p.Y[:])
	}
	volume := make([]interface{}, len(res.Volume))
	for i, p := range res.Volume {
		volume[i] = map[string]interface{}{"x": p.X, "y": float(p.Y)}
	}
	squeeze := make([]interface{}, len(res.Squeeze))
	for i, p := range res.Squeeze {
		squeeze[i] = point(p.X, p.Y[:])
	}
	out["ohlc"], out["volume"], out["squeeze"] = ohlc, volume, squeeze

	if res.Keltner != nil {
		bands := make([]interface{}, len(res.Keltner))
		for i, b := range res.Keltner {
			pts := make([]interface{}, len(b.Points))
			for j, p := range b.Points {
				pts[j] = point(p.X, p.Y[:])
			}
			bands[i] = map[string]interface{}{"scalar": b.Scalar, "points": pts}
		}
		out["keltner"] = bands
	}
	if res.Earnings != nil {
		events := make([]interface{}, len(res.Earnings))
		for i, e := range res.Earnings {
			events[i] = map[string]interface{}{
				"x":                e.X,
				"fiscalDateEnding": e.FiscalDateEnding,
				"estimate":         e.Estimate,
				"currency":         e.Currency,
			}
		}
		out["earnings"] = events
	}
	return out
}

func autocompleteValue(res *models.AutocompleteResult) map[string]interface{} {
	out := map[string]interface{}{
		"success": res.Success,
		"message": res.Message,
	}
	if res.Results != nil {
		results := make([]interface{}, len(res.Results))
		for i, r := range res.Results {
			results[i] = map[string]interface{}{"symbol": r.Symbol, "name": r.Name, "cik": r.CIK}
		}
		out["results"] = results
	}
	return out
}
