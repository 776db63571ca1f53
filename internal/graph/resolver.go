// Package graph はGraphQLスキーマとリゾルバーを提供する。
package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/dreamlog/internal/auth"
	"github.com/hitoshi/dreamlog/internal/middleware"
	"github.com/hitoshi/dreamlog/internal/model"
	"github.com/hitoshi/dreamlog/internal/repository"
	"github.com/hitoshi/dreamlog/internal/security"
)

// MetricsRecorder は認可拒否のメトリクス記録インターフェース。
// nilを渡した場合は記録しない。
type MetricsRecorder interface {
	RecordAuthDenied(reason string)
}

// Resolver はGraphQL操作のリゾルバー群を保持する。
type Resolver struct {
	users     repository.UserRepository
	dreams    repository.DreamRepository
	authSvc   *auth.Service
	sanitizer security.ContentSanitizerService
	metrics   MetricsRecorder
}

// NewResolver は新しいResolverを生成する。metricsはnil可。
func NewResolver(
	users repository.UserRepository,
	dreams repository.DreamRepository,
	authSvc *auth.Service,
	sanitizer security.ContentSanitizerService,
	metrics MetricsRecorder,
) *Resolver {
	return &Resolver{
		users:     users,
		dreams:    dreams,
		authSvc:   authSvc,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// AuthPayload は認証成功時のレスポンス。
type AuthPayload struct {
	Token string
	User  *model.User
}

// requireAuthenticated はコンテキストから認証済みユーザーを取り出す。
// 未認証の場合はUNAUTHENTICATEDエラーを返す。
func (r *Resolver) requireAuthenticated(ctx context.Context) (*model.User, error) {
	user := middleware.UserFromContext(ctx)
	if user == nil {
		if r.metrics != nil {
			r.metrics.RecordAuthDenied("unauthenticated")
		}
		return nil, model.NewUnauthenticatedError()
	}
	return user, nil
}

// requireOwnership は夢を取得し、現在のユーザーが所有者であることを検証する。
// 夢が存在しない場合と所有者でない場合は同じUNAUTHORIZEDエラーを返す。
// 存在有無を区別するとIDの探索が可能になるため、意図的に区別しない。
func (r *Resolver) requireOwnership(ctx context.Context, dreamID string) (*model.Dream, error) {
	current, err := r.requireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	dream, err := r.dreams.FindByID(ctx, dreamID)
	if err != nil {
		return nil, err
	}
	if dream == nil || dream.UserID != current.ID {
		if r.metrics != nil {
			r.metrics.RecordAuthDenied("not_owner")
		}
		slog.Warn("ownership check failed",
			slog.String("dream_id", dreamID),
			slog.String("user_id", current.ID),
		)
		return nil, model.NewUnauthorizedError()
	}
	return dream, nil
}

// GetUser は指定IDのユーザーを取得する。認証不要。見つからない場合はnilを返す。
func (r *Resolver) GetUser(ctx context.Context, id string) (*model.User, error) {
	return r.users.FindByID(ctx, id)
}

// GetDream は指定IDの夢を取得する。認証必須。
// 所有権チェックは行わない（認証済みユーザーは任意の夢をIDで参照できる）。
func (r *Resolver) GetDream(ctx context.Context, id string) (*model.Dream, error) {
	if _, err := r.requireAuthenticated(ctx); err != nil {
		return nil, err
	}
	return r.dreams.FindByID(ctx, id)
}

// GetUserDreams は指定ユーザーの夢一覧をdate降順で返す。
// 認証必須かつ自分自身の一覧のみ参照できる。
func (r *Resolver) GetUserDreams(ctx context.Context, userID string) ([]*model.Dream, error) {
	current, err := r.requireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if userID != current.ID {
		if r.metrics != nil {
			r.metrics.RecordAuthDenied("not_owner")
		}
		return nil, model.NewUnauthorizedError()
	}
	return r.dreams.ListByUserID(ctx, userID)
}

// Signup は新規ユーザーを登録し、トークンを発行する。
func (r *Resolver) Signup(ctx context.Context, username, email, password string) (*AuthPayload, error) {
	user, token, err := r.authSvc.Signup(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	return &AuthPayload{Token: token, User: user}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
func (r *Resolver) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	user, token, err := r.authSvc.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &AuthPayload{Token: token, User: user}, nil
}

// CreateDreamInput は夢作成の入力。
type CreateDreamInput struct {
	Title    string
	Content  string
	Date     time.Time
	Emotions []string
	Themes   []string
}

// CreateDream は現在のユーザーを所有者として夢を作成する。認証必須。
func (r *Resolver) CreateDream(ctx context.Context, input CreateDreamInput) (*model.Dream, error) {
	current, err := r.requireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dream := &model.Dream{
		ID:        uuid.New().String(),
		UserID:    current.ID,
		Title:     input.Title,
		Content:   r.sanitizer.Sanitize(input.Content),
		Date:      input.Date,
		Emotions:  input.Emotions,
		Themes:    input.Themes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if dream.Emotions == nil {
		dream.Emotions = []string{}
	}
	if dream.Themes == nil {
		dream.Themes = []string{}
	}

	if err := r.dreams.Create(ctx, dream); err != nil {
		return nil, err
	}

	slog.Info("dream created",
		slog.String("dream_id", dream.ID),
		slog.String("user_id", current.ID),
	)
	return dream, nil
}

// UpdateDream は所有者による夢の部分更新を行う。
// 所有権チェックのため更新前に最新の夢を取得する。
func (r *Resolver) UpdateDream(ctx context.Context, id string, upd *model.DreamUpdate) (*model.Dream, error) {
	if _, err := r.requireOwnership(ctx, id); err != nil {
		return nil, err
	}

	if upd.Content != nil {
		sanitized := r.sanitizer.Sanitize(*upd.Content)
		upd.Content = &sanitized
	}

	updated, err := r.dreams.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// 所有権チェックと更新の間に削除された場合
		return nil, model.NewDreamNotFoundError(id)
	}
	return updated, nil
}

// DeleteDream は所有者による夢の削除を行う。成功時はtrueを返す。
func (r *Resolver) DeleteDream(ctx context.Context, id string) (bool, error) {
	dream, err := r.requireOwnership(ctx, id)
	if err != nil {
		return false, err
	}

	if err := r.dreams.Delete(ctx, id); err != nil {
		return false, err
	}

	slog.Info("dream deleted",
		slog.String("dream_id", id),
		slog.String("user_id", dream.UserID),
	)
	return true, nil
}

// DreamsOfUser はUser.dreamsフィールドの解決に使う。date降順で返す。
func (r *Resolver) DreamsOfUser(ctx context.Context, userID string) ([]*model.Dream, error) {
	return r.dreams.ListByUserID(ctx, userID)
}

// OwnerOfDream はDream.userフィールドの解決に使う。
func (r *Resolver) OwnerOfDream(ctx context.Context, userID string) (*model.User, error) {
	return r.users.FindByID(ctx, userID)
}
