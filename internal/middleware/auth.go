// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/dreamlog/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに現在のユーザーを格納するためのキー。
var userContextKey = contextKey("current_user")

// IdentityResolver はベアラートークンから現在のユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*model.User, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのベアラートークンから
// 現在のユーザーを解決し、リクエストコンテキストに注入するミドルウェアを返す。
// トークンが無い・不正な場合は匿名セッションとしてそのままハンドラーに進める。
// このミドルウェア自身がリクエストを拒否することはない。
func NewBearerAuthMiddleware(resolver IdentityResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r.Header.Get("Authorization"))

			user, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil {
				// トークン起因のエラーはResolveIdentity内で匿名に降格済み。
				// ここに到達するのはストア障害のみ。
				writeInternalErrorResponse(w)
				return
			}

			ctx := r.Context()
			if user != nil {
				ctx = ContextWithUser(ctx, user)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeInternalErrorResponse は500レスポンスをAPIエラーのJSON形式で書き込む。
func writeInternalErrorResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"code":     "INTERNAL_ERROR",
		"message":  "内部エラーが発生しました。",
		"category": "system",
		"action":   "しばらく待ってから再度お試しください。",
	})
}

// extractBearerToken はAuthorizationヘッダー値から"Bearer "スキームを剥がして
// トークンを取り出す。ヘッダーが無い・スキームが異なる場合は空文字列を返す。
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// UserFromContext はリクエストコンテキストから現在のユーザーを取得する。
// 匿名セッションの場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// ContextWithUser はコンテキストに現在のユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
