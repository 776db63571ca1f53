package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/dreamlog/internal/metrics"
	"github.com/hitoshi/dreamlog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// GraphQL
	Schema graphql.Schema

	// ミドルウェア依存
	IdentityResolver  middleware.IdentityResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// ヘルスチェック
	DB DBPinger

	// メトリクス（nil可）
	Metrics  GraphQLMetricsRecorder
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → BearerAuth → RateLimit
//
// BearerAuthをRateLimitより先に置くことで、認証済みリクエストは
// ユーザーID単位でレート制限される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// ヘルスチェックとメトリクスはログ・認証・レート制限の外に置く
	healthHandler := NewHealthHandler(deps.DB)
	r.Get("/health", healthHandler.Check)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	graphqlHandler := NewGraphQLHandler(deps.Schema, deps.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		r.Use(middleware.NewBearerAuthMiddleware(deps.IdentityResolver))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Post("/graphql", graphqlHandler.ServeGraphQL)
	})

	return r
}
