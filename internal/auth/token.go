package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン検証エラー。クライアントには公開せず、ログとメトリクスにのみ使用する。
var (
	// ErrTokenMalformed はトークンがパースできないことを示す。
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrTokenBadSignature は署名が一致しないことを示す。
	ErrTokenBadSignature = errors.New("token signature is invalid")
	// ErrTokenExpired はトークンの有効期限が切れていることを示す。
	ErrTokenExpired = errors.New("token is expired")
)

// DefaultTokenTTL はトークンのデフォルト有効期間。
const DefaultTokenTTL = 24 * time.Hour

// tokenClaims はJWTに埋め込むクレームセット。
type tokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService はHMAC-SHA256署名のJWTを発行・検証する。
// 署名鍵はプロセス起動時に設定から注入され、プロセス生存中は不変（ローテーションなし）。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// ttlが0以下の場合はDefaultTokenTTLを使用する。
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock は時刻取得関数を差し替えたTokenServiceを返す。テスト用。
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	return &TokenService{secret: s.secret, ttl: s.ttl, now: now}
}

// Issue は指定ユーザーIDを主張する署名付きトークンを発行する。
// 有効期限は発行時刻からTTL後の絶対時刻。
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	claims := &tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたユーザーIDを返す。
// 失敗はErrTokenMalformed、ErrTokenBadSignature、ErrTokenExpiredのいずれかに分類される。
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrTokenBadSignature
		default:
			return "", ErrTokenMalformed
		}
	}

	if claims.UserID == "" {
		return "", ErrTokenMalformed
	}

	return claims.UserID, nil
}

// keyFunc は検証時に署名アルゴリズムを確認して鍵を返す。
func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	return s.secret, nil
}

// TokenErrorKind は検証エラーの種別をログ・メトリクス用の文字列に変換する。
func TokenErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "unknown"
	}
}
