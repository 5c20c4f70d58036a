package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "workboard",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()
	orgID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           enums.MemberRoleOwner,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	p := claims.Principal()
	if p.UserID != userID || p.OrganizationID != orgID || p.Role != enums.MemberRoleOwner {
		t.Fatalf("unexpected principal %+v", p)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           enums.MemberRoleManager,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           enums.MemberRoleTechnician,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenRejectsBadPayload(t *testing.T) {
	cfg := testJWTConfig(5)
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), OrganizationID: uuid.New()}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleViewer}); err == nil {
		t.Fatal("expected missing organization error")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":  {"abc", true},
		"bearer  abc": {"abc", true},
		"Basic abc":   {"", false},
		"Bearer":      {"", false},
		"":            {"", false},
	}
	for header, want := range cases {
		got, ok := BearerToken(header)
		if got != want.token || ok != want.ok {
			t.Errorf("BearerToken(%q) = %q,%v want %q,%v", header, got, ok, want.token, want.ok)
		}
	}
}

func TestParseAccessTokenRejectsIncompleteClaims(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()
	sign := func(claims *AccessTokenClaims) string {
		claims.RegisteredClaims = jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return signed
	}

	noUser := sign(&AccessTokenClaims{OrganizationID: uuid.New(), Role: enums.MemberRoleViewer})
	if _, err := ParseAccessToken(cfg, noUser); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected missing user, got %v", err)
	}
	noOrg := sign(&AccessTokenClaims{UserID: uuid.New(), Role: enums.MemberRoleViewer})
	if _, err := ParseAccessToken(cfg, noOrg); !errors.Is(err, ErrMissingOrg) {
		t.Fatalf("expected missing org, got %v", err)
	}

	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"
	valid := sign(&AccessTokenClaims{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.MemberRoleViewer})
	if _, err := ParseAccessToken(otherIssuer, valid); err == nil {
		t.Fatal("expected issuer mismatch")
	}
	if _, err := ParseAccessToken(config.JWTConfig{Issuer: "x"}, valid); !errors.Is(err, ErrSecretRequired) {
		t.Fatalf("expected secret required, got %v", err)
	}
}
