package api

import (
	"encoding/json"
	"net/http"

	"Copilot/pkg/auth"
	xlogger "Copilot/pkg/logger"

	"github.com/graphql-go/graphql"
	"github.com/labstack/echo/v4"
)

// GraphQLHandler serves the chart query API.
type GraphQLHandler struct {
	logger *xlogger.Logger
	schema graphql.Schema
	tokens *auth.Issuer
	status auth.AccountStatus
}

func NewGraphQLHandler(logger *xlogger.Logger, schema graphql.Schema, tokens *auth.Issuer, status auth.AccountStatus) *GraphQLHandler {
	return &GraphQLHandler{logger: logger, schema: schema, tokens: tokens, status: status}
}

func (h *GraphQLHandler) RegisterRoutes(e *echo.Echo) {
	mw := auth.Authenticate(h.tokens, h.status)
	for _, path := range []string{"/graphql", "/graphql/"} {
		e.GET(path, h.Query, mw)
		e.POST(path, h.Query, mw)
	}
}

type graphQLRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

type graphQLErrorBody struct {
	Errors []map[string]string `json:"errors"`
}

func badGraphQLRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, graphQLErrorBody{Errors: []map[string]string{{"message": msg}}})
}

// Query executes a GraphQL operation from a JSON body or the query string.
// Resolver errors are reported in the body with status 200.
func (h *GraphQLHandler) Query(c echo.Context) error {
	var req graphQLRequest
	if c.Request().Method == http.MethodGet {
		req.Query = c.QueryParam("query")
		req.OperationName = c.QueryParam("operationName")
		if v := c.QueryParam("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return badGraphQLRequest(c, "Variables are invalid JSON.")
			}
		}
	} else if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return badGraphQLRequest(c, "POST body sent invalid JSON.")
	}
	if req.Query == "" {
		return badGraphQLRequest(c, "Must provide query string.")
	}

	res := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        c.Request().Context(),
	})
	if res.HasErrors() {
		h.logger.Debug("graphql errors", xlogger.Any("errors", res.Errors))
	}
	return c.JSON(http.StatusOK, res)
}
