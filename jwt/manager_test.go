package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T, secret string, enc SecretEncoding) *Manager {
	t.Helper()
	m, err := NewManager(Config{SigningMethod: MethodHS256, Secret: secret, SecretEncoding: enc})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func signHS(t *testing.T, key []byte, claims SessionClaims) string {
	t.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseSessionRoundTrip(t *testing.T) {
	m := newHSManager(t, "plain-secret-value-for-tests", EncodingRaw)

	token, err := m.CreateSession("user-42", "kakao-777", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	claims, err := m.ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if claims.Subject != "user-42" || claims.ExternalID != "kakao-777" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenID() == "" {
		t.Fatal("expected jti to be set")
	}
	if claims.IssuedAt == nil || claims.Expiry().IsZero() {
		t.Fatal("expected iat and exp to be set")
	}
}

func TestParseSessionExpired(t *testing.T) {
	key := []byte("plain-secret-value-for-tests")
	m := newHSManager(t, string(key), EncodingRaw)

	token := signHS(t, key, SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})

	_, err := m.ParseSession(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Fatal("expired token must not be reported as invalid")
	}
}

func TestParseSessionRejectsWrongAlgorithm(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodHS256, Secret: "secret-secret-secret-secret"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	edToken, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseSession(edToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}

	edManager, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new ed manager: %v", err)
	}
	hsToken := signHS(t, []byte("secret-secret-secret-secret"), claims)
	if _, err := edManager.ParseSession(hsToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected hs256 token to be rejected by ed25519 manager, got %v", err)
	}
}

func TestParseSessionRejectsBadSignature(t *testing.T) {
	m := newHSManager(t, "right-secret", EncodingRaw)
	token := signHS(t, []byte("wrong-secret"), SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	if _, err := m.ParseSession(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected bad signature to be invalid even when expired, got %v", err)
	}
}

func TestParseSessionRequiresSubject(t *testing.T) {
	key := []byte("plain-secret-value-for-tests")
	m := newHSManager(t, string(key), EncodingRaw)
	token := signHS(t, key, SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	if _, err := m.ParseSession(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected missing subject to be invalid, got %v", err)
	}
}

func TestSecretEncodingIsExplicit(t *testing.T) {
	// "c2VjcmV0" is valid base64 for "secret"; as a raw secret it must stay raw.
	const text = "c2VjcmV0"

	raw, err := DecodeSecret(text, EncodingRaw)
	if err != nil || string(raw) != text {
		t.Fatalf("raw decode: %q %v", raw, err)
	}
	decoded, err := DecodeSecret(text, EncodingBase64)
	if err != nil || string(decoded) != "secret" {
		t.Fatalf("base64 decode: %q %v", decoded, err)
	}
	urlDecoded, err := DecodeSecret(base64.RawURLEncoding.EncodeToString([]byte{0xfb, 0xff}), EncodingBase64URL)
	if err != nil || len(urlDecoded) != 2 {
		t.Fatalf("base64url decode: %v %v", urlDecoded, err)
	}
	if _, err := DecodeSecret("%%%", EncodingBase64); err == nil {
		t.Fatal("expected invalid base64 to fail")
	}
	if _, err := DecodeSecret("x", SecretEncoding("guess")); err == nil {
		t.Fatal("expected unknown encoding to fail")
	}

	rawManager := newHSManager(t, text, EncodingRaw)
	b64Manager := newHSManager(t, text, EncodingBase64)
	token, err := rawManager.CreateSession("u", "", time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b64Manager.ParseSession(token); err == nil {
		t.Fatal("expected key mismatch between raw and base64 decoding")
	}
}

func TestParseSessionIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "goblog",
		Audience:      "web",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	good, err := m.CreateSession("u", "", time.Minute)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.ParseSession(good); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	sign := func(claims SessionClaims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	wrongIssuer := sign(SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject: "u", Issuer: "other", Audience: gjwt.ClaimStrings{"web"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	if _, err := m.ParseSession(wrongIssuer); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	withinLeeway := sign(SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject: "u", Issuer: "goblog", Audience: gjwt.ClaimStrings{"web"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
	}})
	if _, err := m.ParseSession(withinLeeway); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
}

func TestIsExpiring(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	claims := &SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(now.Add(2 * time.Minute)),
	}}

	if IsExpiring(claims, now, time.Minute) {
		t.Fatal("token with 2m left must not be expiring inside a 1m window")
	}
	if !IsExpiring(claims, now, 5*time.Minute) {
		t.Fatal("token with 2m left must be expiring inside a 5m window")
	}
	if !IsExpiring(&SessionClaims{}, now, 0) {
		t.Fatal("token without exp must be treated as expiring")
	}
}

func TestNewManagerRejectsMissingMaterial(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected empty hs256 secret to fail")
	}
	if _, err := NewManager(Config{SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected missing ed25519 keys to fail")
	}
	if _, err := NewManager(Config{SigningMethod: "none", Secret: "x"}); err == nil {
		t.Fatal("expected unsupported method to fail")
	}
}
