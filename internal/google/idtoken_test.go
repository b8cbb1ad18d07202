package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// jwksFixture levanta un discovery + JWKS fake y un verifier apuntando a él.
type jwksFixture struct {
	key      *rsa.PrivateKey
	verifier *IDTokenVerifier
	srv      *httptest.Server

	discHits int
	jwksHits int
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	f := &jwksFixture{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		f.jwksHits++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"alg": "RS256",
				"kid": "test-kid",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/disc", func(w http.ResponseWriter, r *http.Request) {
		f.discHits++
		_ = json.NewEncoder(w).Encode(discoveryDoc{
			Issuer:  "https://accounts.google.com",
			JWKSURI: f.srv.URL + "/jwks",
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	f.verifier = NewIDTokenVerifier(2 * time.Second)
	f.verifier.DiscoveryURL = f.srv.URL + "/disc"
	return f
}

func (f *jwksFixture) sign(t *testing.T, claims jwtv5.MapClaims, kid string) string {
	t.Helper()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(f.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims() jwtv5.MapClaims {
	return jwtv5.MapClaims{
		"iss": "https://accounts.google.com",
		"aud": "cid",
		"sub": "113025810",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestIDTokenVerifyOK(t *testing.T) {
	f := newJWKSFixture(t)

	claims, err := f.verifier.Verify(context.Background(), f.sign(t, validClaims(), "test-kid"), "cid")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != "113025810" {
		t.Fatalf("sub = %v", claims["sub"])
	}

	// Segunda verificación: discovery y JWKS salen del cache.
	if _, err := f.verifier.Verify(context.Background(), f.sign(t, validClaims(), "test-kid"), "cid"); err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if f.discHits != 1 || f.jwksHits != 1 {
		t.Fatalf("hits disc=%d jwks=%d, want 1/1", f.discHits, f.jwksHits)
	}
}

func TestIDTokenVerifyAudienceList(t *testing.T) {
	f := newJWKSFixture(t)
	claims := validClaims()
	claims["aud"] = []string{"other", "cid"}

	if _, err := f.verifier.Verify(context.Background(), f.sign(t, claims, "test-kid"), "cid"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestIDTokenVerifyBadIssuer(t *testing.T) {
	f := newJWKSFixture(t)
	claims := validClaims()
	claims["iss"] = "https://evil.example.com"

	if _, err := f.verifier.Verify(context.Background(), f.sign(t, claims, "test-kid"), "cid"); err == nil {
		t.Fatal("accepted token with foreign issuer")
	}
}

func TestIDTokenVerifyBadAudience(t *testing.T) {
	f := newJWKSFixture(t)
	claims := validClaims()
	claims["aud"] = "someone-else"

	if _, err := f.verifier.Verify(context.Background(), f.sign(t, claims, "test-kid"), "cid"); err == nil {
		t.Fatal("accepted token for another client")
	}
}

func TestIDTokenVerifyExpired(t *testing.T) {
	f := newJWKSFixture(t)
	claims := validClaims()
	claims["exp"] = time.Now().Add(-2 * time.Hour).Unix()

	if _, err := f.verifier.Verify(context.Background(), f.sign(t, claims, "test-kid"), "cid"); err == nil {
		t.Fatal("accepted expired token")
	}
}

func TestIDTokenVerifyUnknownKid(t *testing.T) {
	f := newJWKSFixture(t)

	if _, err := f.verifier.Verify(context.Background(), f.sign(t, validClaims(), "other-kid"), "cid"); err == nil {
		t.Fatal("accepted token signed with unknown kid")
	}
}

func TestIDTokenVerifyWrongAlg(t *testing.T) {
	f := newJWKSFixture(t)

	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, validClaims())
	tok.Header["kid"] = "test-kid"
	s, err := tok.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.verifier.Verify(context.Background(), s, "cid"); err == nil {
		t.Fatal("accepted HS256 token")
	}
}

func TestIDTokenVerifyGarbage(t *testing.T) {
	f := newJWKSFixture(t)

	for _, tokenString := range []string{"", "garbage", "a.b", "!!!.!!!.!!!"} {
		if _, err := f.verifier.Verify(context.Background(), tokenString, "cid"); err == nil {
			t.Errorf("accepted %q", tokenString)
		}
	}
}
