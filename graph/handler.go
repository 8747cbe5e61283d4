package graph

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/UkralStul/content-graph-service/internal/apierr"
	"github.com/UkralStul/content-graph-service/internal/metrics"
)

const (
	maxBodyBytes = 1 << 20
	// otherOperation labels requests whose root field is not in the schema.
	otherOperation = "other"
)

type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes GraphQL requests over HTTP.
type Handler struct {
	schema  graphql.Schema
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandler(schema graphql.Schema, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{schema: schema, metrics: m, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				writeRequestError(w, "variables must be a JSON object")
				return
			}
		}
	case http.MethodPost:
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeRequestError(w, "request body must be a GraphQL JSON request")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	codeErrors(result)

	operation := h.operationLabel(req)
	h.metrics.ObserveOperation(operation, result.HasErrors(), time.Since(start))
	if result.HasErrors() {
		h.logger.DebugContext(r.Context(), "graphql operation failed",
			slog.String("operation", operation),
			slog.Any("errors", result.Errors))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode result", slog.String("error", err.Error()))
	}
}

// operationLabel names an operation by its type and first root field, e.g.
// "mutation.allowKeyword". Labels are bounded by the schema, whatever the
// client sends as operationName.
func (h *Handler) operationLabel(req Request) string {
	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return otherOperation
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if req.OperationName != "" && (op.Name == nil || op.Name.Value != req.OperationName) {
			continue
		}

		var root *graphql.Object
		switch op.Operation {
		case ast.OperationTypeQuery:
			root = h.schema.QueryType()
		case ast.OperationTypeMutation:
			root = h.schema.MutationType()
		}
		if root == nil || op.SelectionSet == nil {
			return otherOperation
		}
		for _, sel := range op.SelectionSet.Selections {
			field, ok := sel.(*ast.Field)
			if !ok || field.Name == nil {
				continue
			}
			if _, known := root.Fields()[field.Name.Value]; known {
				return op.Operation + "." + field.Name.Value
			}
		}
		return otherOperation
	}
	return otherOperation
}

// codeErrors gives every error an extensions.code. Errors raised before
// execution started are validation failures.
func codeErrors(result *graphql.Result) {
	fallback := apierr.CodeInternal
	if result.Data == nil {
		fallback = apierr.CodeValidationFailed
	}
	for i := range result.Errors {
		if _, ok := result.Errors[i].Extensions["code"]; ok {
			continue
		}
		if result.Errors[i].Extensions == nil {
			result.Errors[i].Extensions = map[string]interface{}{}
		}
		result.Errors[i].Extensions["code"] = string(fallback)
	}
}

func writeRequestError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(&graphql.Result{
		Errors: []gqlerrors.FormattedError{{
			Message:    message,
			Extensions: map[string]interface{}{"code": string(apierr.CodeValidationFailed)},
		}},
	})
}
