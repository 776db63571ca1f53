// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/hitoshi/dreamlog/internal/model"
)

// GraphQLMetricsRecorder はGraphQLリクエストのメトリクス記録インターフェース。
// nilを渡した場合は記録しない。
type GraphQLMetricsRecorder interface {
	RecordGraphQLRequest(operation string)
	RecordGraphQLError(operation string)
	RecordRequestDuration(duration time.Duration)
}

// GraphQLHandler はGraphQLエンドポイントのHTTPハンドラー。
type GraphQLHandler struct {
	schema  graphql.Schema
	metrics GraphQLMetricsRecorder
}

// NewGraphQLHandler はGraphQLHandlerを生成する。metricsはnil可。
func NewGraphQLHandler(schema graphql.Schema, metrics GraphQLMetricsRecorder) *GraphQLHandler {
	return &GraphQLHandler{
		schema:  schema,
		metrics: metrics,
	}
}

// graphqlRequest はGraphQLリクエストボディの形。
type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// ServeGraphQL はGraphQLクエリ・ミューテーションを実行する。
// POST /graphql
//
// GraphQLの慣習に従い、リゾルバー内のエラーはHTTP 200で
// レスポンスのerrorsフィールドに載せて返す。
func (h *GraphQLHandler) ServeGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの形式が不正です。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return
	}
	if req.Query == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "queryフィールドは必須です。",
			Category: "validation",
			Action:   "queryを指定してください。",
		})
		return
	}

	operation := req.OperationName
	if operation == "" {
		operation = "anonymous"
	}

	start := time.Now()
	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        r.Context(),
	})
	duration := time.Since(start)

	if h.metrics != nil {
		h.metrics.RecordGraphQLRequest(operation)
		h.metrics.RecordRequestDuration(duration)
		if len(result.Errors) > 0 {
			h.metrics.RecordGraphQLError(operation)
		}
	}
	if len(result.Errors) > 0 {
		slog.Warn("graphql execution errors",
			slog.String("operation", operation),
			slog.Int("error_count", len(result.Errors)),
			slog.String("first_error", result.Errors[0].Message),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode graphql response", slog.String("error", err.Error()))
	}
}

// apiErrorResponse はエラーレスポンスのJSON形。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}
