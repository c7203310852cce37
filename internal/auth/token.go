package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-account-service/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig holds the signing secrets and lifetimes for both token types.
// Secrets are injected here once at construction; nothing reads them from
// the environment afterwards.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// TokenIssuer mints and verifies the two session token types. Access tokens
// carry the display claims; refresh tokens carry only the user id. Each type
// is signed with its own secret.
type TokenIssuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
}

func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessTTL,
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshTTL,
	}
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.accessTTL }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

func (t *TokenIssuer) IssueAccessToken(user model.User) (string, error) {
	now := time.Now().UTC()
	return signToken(jwt.MapClaims{
		"sub":      user.ID,
		"email":    user.Email,
		"username": user.Username,
		"fullname": user.Fullname,
		"typ":      tokenTypeAccess,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(t.accessTTL).Unix(),
	}, t.accessSecret)
}

func (t *TokenIssuer) IssueRefreshToken(user model.User) (string, error) {
	now := time.Now().UTC()
	return signToken(jwt.MapClaims{
		"sub": user.ID,
		"typ": tokenTypeRefresh,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(t.refreshTTL).Unix(),
	}, t.refreshSecret)
}

func (t *TokenIssuer) VerifyAccess(tokenString string) (*model.AuthClaims, error) {
	return verifyToken(tokenString, t.accessSecret, tokenTypeAccess)
}

func (t *TokenIssuer) VerifyRefresh(tokenString string) (*model.AuthClaims, error) {
	return verifyToken(tokenString, t.refreshSecret, tokenTypeRefresh)
}

func signToken(claims jwt.MapClaims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verifyToken(tokenString string, secret []byte, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired
		}
		return nil, model.ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, model.ErrTokenInvalid
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrTokenInvalid
	}

	typ, _ := claimsMap["typ"].(string)
	if typ != expectedType {
		return nil, model.ErrTokenInvalid
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Email, _ = claimsMap["email"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.Fullname, _ = claimsMap["fullname"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, model.ErrTokenInvalid
	}

	return claims, nil
}
