package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/imagefeed/backend/internal/models"
)

const (
	// TokenTypeBearer is reported alongside issued access tokens.
	TokenTypeBearer = "bearer"

	audienceAccess = "imagefeed:auth"
	audienceReset  = "imagefeed:reset"
	audienceVerify = "imagefeed:verify"
)

var (
	// ErrInvalidToken indicates a token that is malformed, forged, or minted for another purpose.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the JWT payload used for every token imagefeed mints. Only the
// fields relevant to a token's audience are populated.
type Claims struct {
	jwt.RegisteredClaims
	Email               string `json:"email,omitempty"`
	PasswordFingerprint string `json:"password_fgpt,omitempty"`
}

// TokenConfig configures the lifetimes of issued tokens.
type TokenConfig struct {
	Secret    string
	AccessTTL time.Duration
	ResetTTL  time.Duration
	VerifyTTL time.Duration
}

// Tokens issues and validates HS256 JWTs for login, password reset and email verification.
type Tokens struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	verifyTTL time.Duration

	NowFunc func() time.Time
}

// NewTokens constructs a Tokens signer. It panics on an empty secret since
// every token it mints would be forgeable.
func NewTokens(cfg TokenConfig) *Tokens {
	if strings.TrimSpace(cfg.Secret) == "" {
		panic("auth: token secret must not be empty")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = time.Hour
	}
	return &Tokens{
		secret:    []byte(cfg.Secret),
		accessTTL: cfg.AccessTTL,
		resetTTL:  cfg.ResetTTL,
		verifyTTL: cfg.VerifyTTL,
	}
}

// IssueAccess mints a bearer token identifying userID.
func (t *Tokens) IssueAccess(userID string) (models.AccessToken, error) {
	if userID == "" {
		return models.AccessToken{}, errors.New("user id must be provided")
	}

	expiresAt := t.now().Add(t.accessTTL)
	signed, err := t.sign(Claims{RegisteredClaims: t.registered(userID, audienceAccess, expiresAt)})
	if err != nil {
		return models.AccessToken{}, err
	}

	return models.AccessToken{Token: signed, TokenType: TokenTypeBearer, ExpiresAt: expiresAt}, nil
}

// VerifyAccess returns the user id carried by a bearer token.
func (t *Tokens) VerifyAccess(token string) (string, error) {
	claims, err := t.parse(token, audienceAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IssueReset mints a password reset token bound to the user's current password
// hash, so it stops working once the password changes.
func (t *Tokens) IssueReset(user models.User) (string, error) {
	return t.sign(Claims{
		RegisteredClaims:    t.registered(user.ID, audienceReset, t.now().Add(t.resetTTL)),
		PasswordFingerprint: PasswordFingerprint(user.Password),
	})
}

// VerifyReset validates a password reset token and returns its claims. Callers
// must compare PasswordFingerprint against the stored hash.
func (t *Tokens) VerifyReset(token string) (Claims, error) {
	claims, err := t.parse(token, audienceReset)
	if err != nil {
		return Claims{}, err
	}
	if claims.PasswordFingerprint == "" {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}

// IssueVerify mints an email verification token for the user's current address.
func (t *Tokens) IssueVerify(user models.User) (string, error) {
	return t.sign(Claims{
		RegisteredClaims: t.registered(user.ID, audienceVerify, t.now().Add(t.verifyTTL)),
		Email:            user.Email,
	})
}

// VerifyVerify validates an email verification token and returns its claims.
func (t *Tokens) VerifyVerify(token string) (Claims, error) {
	claims, err := t.parse(token, audienceVerify)
	if err != nil {
		return Claims{}, err
	}
	if claims.Email == "" {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}

// PasswordFingerprint derives a non-reversible marker of a password hash.
func PasswordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:16])
}

func (t *Tokens) registered(subject, audience string, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(t.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (t *Tokens) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token, audience string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (t *Tokens) now() time.Time {
	if t.NowFunc != nil {
		return t.NowFunc()
	}
	return time.Now().UTC()
}
