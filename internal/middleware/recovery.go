package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、
// APIエラー形式の500レスポンスを返すミドルウェアを生成する。
// リゾルバー内のpanicもGraphQLハンドラーを越えてここで捕捉される。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					attrs := []any{
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					}
					if user := UserFromContext(r.Context()); user != nil {
						attrs = append(attrs, slog.String("user_id", user.ID))
					}
					slog.Error("panic recovered", attrs...)
					writeInternalErrorResponse(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
