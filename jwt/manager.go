package jwt

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid is returned for a bad signature, a disallowed algorithm,
	// or a malformed payload.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("session token expired")
)

// SigningMethod selects the one algorithm a Manager accepts.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// SecretEncoding states how Config.Secret is to be read. There is no
// auto-detection: a plain-text secret drawn from the base64 alphabet would
// otherwise be mis-decoded.
type SecretEncoding string

const (
	EncodingRaw       SecretEncoding = "raw"
	EncodingBase64    SecretEncoding = "base64"
	EncodingBase64URL SecretEncoding = "base64url"
)

// Config holds verification (and optional issuance) material.
type Config struct {
	SigningMethod  SigningMethod
	Secret         string
	SecretEncoding SecretEncoding
	// Ed25519 keys; raw bytes or PEM.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	RequireIAT bool
}

// Manager verifies session tokens with exactly one algorithm.
type Manager struct {
	config    Config
	hmacKey   []byte
	edPublic  ed25519.PublicKey
	edPrivate ed25519.PrivateKey
	now       func() time.Time
}

// SessionClaims is the verified payload of a session token.
type SessionClaims struct {
	ExternalID string `json:"externalId,omitempty"`
	jwt.RegisteredClaims
}

// TokenID returns the jti claim.
func (c *SessionClaims) TokenID() string {
	if c == nil {
		return ""
	}
	return c.RegisteredClaims.ID
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *SessionClaims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// NewManager validates cfg and decodes its key material.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	m := &Manager{config: cfg, now: time.Now}

	switch cfg.SigningMethod {
	case MethodHS256:
		key, err := DecodeSecret(cfg.Secret, cfg.SecretEncoding)
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return nil, errors.New("hs256 requires secret")
		}
		m.hmacKey = key
	case MethodEd25519:
		if len(cfg.PublicKey) == 0 && len(cfg.PrivateKey) == 0 {
			return nil, errors.New("ed25519 requires public or private key")
		}
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.edPrivate = priv
			m.edPublic = priv.Public().(ed25519.PublicKey)
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.edPublic = pub
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// DecodeSecret turns configured secret text into key bytes according to enc.
// An empty encoding means raw.
func DecodeSecret(secret string, enc SecretEncoding) ([]byte, error) {
	switch enc {
	case "", EncodingRaw:
		return []byte(secret), nil
	case EncodingBase64:
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
		if err != nil {
			return nil, fmt.Errorf("decode base64 secret: %w", err)
		}
		return key, nil
	case EncodingBase64URL:
		key, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(secret), "="))
		if err != nil {
			return nil, fmt.Errorf("decode base64url secret: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported secret encoding %q", enc)
	}
}

// Algorithm returns the JOSE alg name this manager accepts.
func (m *Manager) Algorithm() string {
	return m.method().Alg()
}

// CreateSession issues a token for subject. Used by local tooling and tests;
// production tokens are minted by the backend.
func (m *Manager) CreateSession(subject, externalID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid TTL")
	}
	now := m.now()
	claims := SessionClaims{
		ExternalID: externalID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(m.method(), claims).SignedString(key)
}

// ParseSession verifies tokenStr and returns its claims.
//
// Failures map onto exactly two errors: [ErrTokenExpired] for a valid
// signature past expiry and [ErrTokenInvalid] for everything else. The
// underlying jwt error is wrapped for logging.
func (m *Manager) ParseSession(tokenStr string) (*SessionClaims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, ErrTokenInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

// IsExpiring reports whether claims expire within window of now. Claims
// without an expiry are always expiring.
func IsExpiring(claims *SessionClaims, now time.Time, window time.Duration) bool {
	exp := claims.Expiry()
	if exp.IsZero() {
		return true
	}
	return !exp.After(now.Add(window))
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.hmacKey, nil
	default:
		if m.edPrivate == nil {
			return nil, errors.New("ed25519 private key not configured")
		}
		return m.edPrivate, nil
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.hmacKey, nil
	default:
		if m.edPublic == nil {
			return nil, errors.New("ed25519 public key not configured")
		}
		return m.edPublic, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
