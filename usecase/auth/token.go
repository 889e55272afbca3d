package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fastygo/greenbite/domain"
)

type TokenConfig struct {
	Secret string
	Issuer string
}

// Claims binds a token to one session; signing out invalidates it.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	issuer string
}

func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

func (t *TokenIssuer) Issue(identity domain.Identity, expiresAt time.Time) (string, error) {
	claims := Claims{
		UserID:    identity.ID,
		SessionID: identity.SessionID,
		Email:     identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "sign token", err)
	}
	return signed, nil
}

func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrUnauthorized
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrUnauthorized
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, domain.ErrUnauthorized
	}
	return &claims, nil
}
