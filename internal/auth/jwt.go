package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"classdesk/internal/model"
)

var (
	// ErrTokenExpired is returned when the signature checks out but the
	// expiry claim is in the past. Callers surface it separately so clients
	// know to refresh instead of re-authenticating.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers forged signatures and malformed or incomplete
	// payloads.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid is the single failure mode of Refresh; expired and
	// forged refresh tokens are deliberately not distinguished.
	ErrRefreshInvalid = errors.New("invalid refresh token")
)

type Claims struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
	Email  string     `json:"email"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service mints and validates the signed identity assertions carried on
// every request. Secrets are fixed at construction; rotating them
// invalidates everything issued before.
type Service struct {
	secret        []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(secret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) *Service {
	if refreshSecret == "" {
		refreshSecret = secret
	}
	return &Service{
		secret:        []byte(secret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssuePair signs a short-lived access token and a long-lived refresh token
// for the same identity. Pure computation, nothing is persisted.
func (s *Service) IssuePair(userID string, role model.Role, email string) (TokenPair, error) {
	accessToken, err := s.sign(s.secret, s.accessTTL, userID, role, email)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := s.sign(s.refreshSecret, s.refreshTTL, userID, role, email)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess validates signature and expiry of an access token and
// returns the decoded claims. Expiry and forgery are distinct errors.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return verify(s.secret, tokenString)
}

// Refresh verifies a refresh token and mints a brand-new pair from the
// identity it carries. Every failure collapses to ErrRefreshInvalid.
func (s *Service) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := verify(s.refreshSecret, refreshToken)
	if err != nil {
		return TokenPair{}, ErrRefreshInvalid
	}
	return s.IssuePair(claims.UserID, claims.Role, claims.Email)
}

// SignResetToken issues a short-lived single-purpose token for password
// resets, signed with the access secret.
func (s *Service) SignResetToken(userID string, role model.Role, email string, ttl time.Duration) (string, error) {
	return s.sign(s.secret, ttl, userID, role, email)
}

// VerifyResetToken validates a password-reset token.
func (s *Service) VerifyResetToken(tokenString string) (*Claims, error) {
	return verify(s.secret, tokenString)
}

func (s *Service) sign(secret []byte, ttl time.Duration, userID string, role model.Role, email string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	// Never trust a structurally valid token with missing or unknown fields.
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	if _, ok := model.ParseRole(string(claims.Role)); !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
