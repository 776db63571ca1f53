package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/dreamlog/internal/model"
	"github.com/hitoshi/dreamlog/internal/repository"
)

// MetricsRecorder は認証まわりのメトリクス記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordTokenVerifyFailure(kind string)
}

// Service はサインアップ、ログイン、トークンからの本人解決を提供する。
type Service struct {
	users   repository.UserRepository
	tokens  *TokenService
	hasher  *PasswordHasher
	metrics MetricsRecorder // nil許容
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(users repository.UserRepository, tokens *TokenService, hasher *PasswordHasher, metrics MetricsRecorder) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		metrics: metrics,
	}
}

// Signup は新規ユーザーを作成し、トークンを発行する。
// email重複の場合はDUPLICATE_EMAILエラーを返す（一意性はストアのUNIQUE制約が保証する）。
func (s *Service) Signup(ctx context.Context, username, email, password string) (*model.User, string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, "", apiErr
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
// ユーザー不在とパスワード不一致のどちらでも同一のINVALID_CREDENTIALSエラーを返し、
// どちらが原因かを漏らさない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// ResolveIdentity はトークンから現在のユーザーを解決する。
// トークン検証エラーは匿名セッションに降格させ、エラーとしては返さない（意図的なポリシー）。
// 検証エラーの種別はログとメトリクスに記録する。
// トークンが有効でもユーザーが既に存在しない場合はnilを返す。
func (s *Service) ResolveIdentity(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		kind := TokenErrorKind(err)
		slog.Warn("token verification failed, treating as anonymous",
			slog.String("kind", kind),
		)
		if s.metrics != nil {
			s.metrics.RecordTokenVerifyFailure(kind)
		}
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}
