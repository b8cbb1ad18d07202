package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotterdam-cs/portal-connect/internal/connect"
)

type staticCreds struct{ c Credentials }

func (s staticCreds) OAuthCredentials(ctx context.Context, tenantID string) (Credentials, error) {
	return s.c, nil
}

func newTestClient(tokenURL, userInfoURL string) *Client {
	return New(staticCreds{Credentials{ClientID: "cid", ClientSecret: "sec"}}, tokenURL, userInfoURL, 2*time.Second)
}

func TestExchangeCodeOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" ||
			r.PostForm.Get("code") != "the-code" ||
			r.PostForm.Get("client_id") != "cid" ||
			r.PostForm.Get("client_secret") != "sec" ||
			r.PostForm.Get("redirect_uri") != "https://portal/cb" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.abc","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	tok, err := c.ExchangeCode(context.Background(), "t1", "https://portal/cb", "the-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tok != "ya29.abc" {
		t.Fatalf("token = %q", tok)
	}
}

func TestExchangeCodeProviderRefusal(t *testing.T) {
	// Error object, non-2xx y body no-JSON: siempre ("", nil).
	cases := map[string]http.HandlerFunc{
		"error object": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
		},
		"non-2xx without error field": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{}`))
		},
		"undecodable body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>proxy error</html>`))
		},
		"empty token": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"token_type":"Bearer"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := newTestClient(srv.URL, "")
			tok, err := c.ExchangeCode(context.Background(), "t1", "", "code")
			if err != nil {
				t.Fatalf("err = %v, want nil (silent refusal)", err)
			}
			if tok != "" {
				t.Fatalf("token = %q, want empty", tok)
			}
		})
	}
}

func TestExchangeCodeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := newTestClient(srv.URL, "")
	if _, err := c.ExchangeCode(context.Background(), "t1", "", "code"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestFetchProfileSubjectVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int64
	}{
		{"sub as string", `{"sub":"113025810","email":"a@b.com"}`, 113025810},
		{"legacy id as string", `{"id":"42","email":"a@b.com"}`, 42},
		{"legacy id as number", `{"id":42,"email":"a@b.com"}`, 42},
		{"sub wins over id", `{"sub":"1","id":"2","email":"a@b.com"}`, 1},
		{"non-numeric sub falls back to id", `{"sub":"abc","id":"7","email":"a@b.com"}`, 7},
		{"absent subject", `{"email":"a@b.com"}`, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("auth header = %q", got)
				}
				w.Write([]byte(c.body))
			}))
			defer srv.Close()

			cl := newTestClient("", srv.URL)
			p, err := cl.FetchProfile(context.Background(), "t1", "tok")
			if err != nil {
				t.Fatalf("FetchProfile: %v", err)
			}
			if p.SubjectID != c.want {
				t.Fatalf("SubjectID = %d, want %d", p.SubjectID, c.want)
			}
		})
	}
}

func TestFetchProfileVerifiedEmailVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"verified_email", `{"email":"a@b.com","verified_email":true}`, true},
		{"email_verified oidc", `{"email":"a@b.com","email_verified":true}`, true},
		{"oidc false overrides", `{"email":"a@b.com","verified_email":true,"email_verified":false}`, false},
		{"absent", `{"email":"a@b.com"}`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(c.body))
			}))
			defer srv.Close()

			p, err := newTestClient("", srv.URL).FetchProfile(context.Background(), "t1", "tok")
			if err != nil {
				t.Fatalf("FetchProfile: %v", err)
			}
			if p.EmailVerified != c.want {
				t.Fatalf("EmailVerified = %v, want %v", p.EmailVerified, c.want)
			}
		})
	}
}

func TestFetchProfileFullMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"sub":"99","email":"jane@corp.com","verified_email":true,
			"given_name":"Jane","family_name":"Roe",
			"picture":"https://lh3/p.jpg","gender":"female"
		}`))
	}))
	defer srv.Close()

	p, err := newTestClient("", srv.URL).FetchProfile(context.Background(), "t1", "tok")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if p.Email != "jane@corp.com" || p.GivenName != "Jane" || p.FamilyName != "Roe" ||
		p.PictureURL != "https://lh3/p.jpg" || p.Gender != "female" {
		t.Fatalf("profile = %+v", p)
	}
	if p.Male() {
		t.Fatal("gender female mapped to Male()=true")
	}
}

func TestFetchProfileErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient("", srv.URL).FetchProfile(context.Background(), "t1", "tok")
	if !errors.Is(err, connect.ErrProviderError) {
		t.Fatalf("err = %v, want ErrProviderError", err)
	}
}

func TestFetchImage(t *testing.T) {
	img := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write(img)
	}))
	defer srv.Close()

	c := newTestClient("", "")
	got, err := c.FetchImage(context.Background(), srv.URL+"/photo")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if string(got) != string(img) {
		t.Fatalf("image bytes = %v", got)
	}

	if _, err := c.FetchImage(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestSubjectIDParsing(t *testing.T) {
	if got := subjectID([]byte(`null`), []byte(`"5"`)); got != 5 {
		t.Fatalf("subjectID(null, \"5\") = %d", got)
	}
	if got := subjectID(nil, nil); got != 0 {
		t.Fatalf("subjectID(nil, nil) = %d", got)
	}
}
