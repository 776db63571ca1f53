package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/dreamlog/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func newTestService(users *mockUserRepo) *Service {
	tokens := NewTokenService(testSecret, DefaultTokenTTL)
	hasher := NewPasswordHasher(DefaultBcryptCost)
	return NewService(users, tokens, hasher, nil)
}

// --- Signup ---

func TestService_Signup_CreatesUserAndIssuesToken(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(users)

	user, token, err := svc.Signup(context.Background(), "alice", "a@x.com", "pw123")
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if user.ID == "" {
		t.Error("user.ID should be generated")
	}
	if user.Username != "alice" || user.Email != "a@x.com" {
		t.Errorf("user = %+v, want username=alice email=a@x.com", user)
	}
	if user.PasswordHash == "pw123" || user.PasswordHash == "" {
		t.Error("password must be stored as a bcrypt hash")
	}

	// 発行されたトークンが同一ユーザーIDに解決できること
	userID, err := svc.tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if userID != user.ID {
		t.Errorf("token userID = %q, want %q", userID, user.ID)
	}
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return model.NewDuplicateEmailError()
		},
	}
	svc := newTestService(users)

	_, token, err := svc.Signup(context.Background(), "alice", "a@x.com", "pw123")
	if err == nil {
		t.Fatal("expected error for duplicate email")
	}
	if token != "" {
		t.Error("no token should be issued on failure")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("err = %v, want APIError with code %s", err, model.ErrCodeDuplicateEmail)
	}
}

// --- Login ---

func TestService_Login_Success(t *testing.T) {
	hasher := NewPasswordHasher(DefaultBcryptCost)
	hash, err := hasher.Hash("pw123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email != "a@x.com" {
				return nil, nil
			}
			return &model.User{ID: "user-1", Username: "alice", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(users)

	user, token, err := svc.Login(context.Background(), "a@x.com", "pw123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}

	userID, err := svc.tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("token userID = %q, want %q", userID, "user-1")
	}
}

// ユーザー不在とパスワード不一致で完全に同一のエラーが返ることを検証する。
// どちらが原因かをクライアントに漏らさないための回帰テスト。
func TestService_Login_InvalidCredentials_SameErrorForBothCauses(t *testing.T) {
	hasher := NewPasswordHasher(DefaultBcryptCost)
	hash, err := hasher.Hash("pw123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email == "a@x.com" {
				return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(users)

	// 存在しないメールアドレス
	_, token1, err1 := svc.Login(context.Background(), "nobody@x.com", "pw123")
	if err1 == nil {
		t.Fatal("expected error for unknown email")
	}
	if token1 != "" {
		t.Error("no token should be issued for unknown email")
	}

	// パスワード不一致
	_, token2, err2 := svc.Login(context.Background(), "a@x.com", "wrong-password")
	if err2 == nil {
		t.Fatal("expected error for wrong password")
	}
	if token2 != "" {
		t.Error("no token should be issued for wrong password")
	}

	if err1.Error() != err2.Error() {
		t.Errorf("error messages differ: %q vs %q (must be identical)", err1.Error(), err2.Error())
	}

	var apiErr *model.APIError
	if !errors.As(err1, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("err = %v, want APIError with code %s", err1, model.ErrCodeInvalidCredentials)
	}
}

// --- ResolveIdentity ---

func TestService_ResolveIdentity_ValidToken(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return &model.User{ID: id, Username: "alice"}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(users)

	token, err := svc.tokens.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	user, err := svc.ResolveIdentity(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveIdentity returned error: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("user = %+v, want ID user-1", user)
	}
}

func TestService_ResolveIdentity_EmptyToken_Anonymous(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	user, err := svc.ResolveIdentity(context.Background(), "")
	if err != nil {
		t.Fatalf("ResolveIdentity returned error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for empty token", user)
	}
}

// トークン検証エラーはエラーにならず匿名（nil）に降格することを検証する。
func TestService_ResolveIdentity_BadToken_Anonymous(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	badTokens := []string{
		"garbage",
		"a.b.c",
	}
	for _, token := range badTokens {
		user, err := svc.ResolveIdentity(context.Background(), token)
		if err != nil {
			t.Errorf("ResolveIdentity(%q) returned error: %v (token errors must be swallowed)", token, err)
		}
		if user != nil {
			t.Errorf("ResolveIdentity(%q) = %+v, want nil", token, user)
		}
	}
}

func TestService_ResolveIdentity_ExpiredToken_Anonymous(t *testing.T) {
	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	issuer := NewTokenService(testSecret, time.Hour).WithClock(func() time.Time {
		return issuedAt
	})
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			t.Error("FindByID should not be called for an expired token")
			return nil, nil
		},
	}
	verifier := NewTokenService(testSecret, time.Hour).WithClock(func() time.Time {
		return issuedAt.Add(2 * time.Hour)
	})
	svc := NewService(users, verifier, NewPasswordHasher(DefaultBcryptCost), nil)

	user, err := svc.ResolveIdentity(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveIdentity returned error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for expired token", user)
	}
}

// トークンは有効だがユーザーが削除済みの場合はnilを返すことを検証する。
func TestService_ResolveIdentity_UserNoLongerExists(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := newTestService(users)

	token, err := svc.tokens.Issue("user-gone")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	user, err := svc.ResolveIdentity(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveIdentity returned error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for deleted user", user)
	}
}
