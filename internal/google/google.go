// Package google implements the outbound Google OAuth2 calls of the connect
// flow: token exchange, userinfo fetch and profile-image download.
//
// Implementa los ports connect.IdentityProvider y connect.PortraitFetcher.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotterdam-cs/portal-connect/internal/connect"
	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
)

const (
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	// maxPortraitBytes limita la descarga del profile picture.
	maxPortraitBytes = 5 << 20
)

// Credentials are the per-tenant OAuth client credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// CredentialSource resuelve las credenciales OAuth del tenant (viven en
// tenant settings, no en config global).
type CredentialSource interface {
	OAuthCredentials(ctx context.Context, tenantID string) (Credentials, error)
}

// Client talks to Google's token and userinfo endpoints.
type Client struct {
	TokenURL    string
	UserInfoURL string
	Creds       CredentialSource

	// Verifier opcional: cuando está seteado, el id_token que acompaña al
	// access token se verifica contra el JWKS de Google antes de aceptar el
	// exchange.
	Verifier *IDTokenVerifier

	http *http.Client
}

func New(creds CredentialSource, tokenURL, userInfoURL string, timeout time.Duration) *Client {
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		TokenURL:    tokenURL,
		UserInfoURL: userInfoURL,
		Creds:       creds,
		http:        &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades the authorization code for an access token.
//
// Devuelve "" (sin error) cuando el provider no entrega token: respuesta con
// error object, status no-2xx o token vacío. Error solo en fallos de
// transporte. El orquestador trata ambos igual (rechazo silencioso).
func (c *Client) ExchangeCode(ctx context.Context, tenantID, redirectURI, code string) (string, error) {
	log := logger.From(ctx).With(logger.Layer("provider"), logger.Component("google.oauth"), logger.TenantID(tenantID))

	creds, err := c.Creds.OAuthCredentials(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("oauth credentials: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		log.Debug("token response undecodable", logger.Err(err))
		return "", nil
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" {
		log.Debug("token exchange refused",
			logger.Int("status", resp.StatusCode),
			logger.String("provider_error", tr.Error),
		)
		return "", nil
	}
	if tr.AccessToken == "" {
		return "", nil
	}

	if c.Verifier != nil && tr.IDToken != "" {
		if _, err := c.Verifier.Verify(ctx, tr.IDToken, creds.ClientID); err != nil {
			log.Warn("id_token verification failed, discarding token", logger.Err(err))
			return "", nil
		}
	}

	return tr.AccessToken, nil
}

// userInfo es el shape crudo del userinfo endpoint. Sub e ID van como
// RawMessage: según la versión del protocolo el subject llega como "sub" o
// "id", y como string o número.
type userInfo struct {
	Sub           json.RawMessage `json:"sub"`
	ID            json.RawMessage `json:"id"`
	Email         string          `json:"email"`
	VerifiedEmail bool            `json:"verified_email"`
	EmailVerified *bool           `json:"email_verified"` // variante OIDC
	GivenName     string          `json:"given_name"`
	FamilyName    string          `json:"family_name"`
	Picture       string          `json:"picture"`
	Gender        string          `json:"gender"`

	Error json.RawMessage `json:"error"`
}

// FetchProfile retrieves and normalizes the identity profile.
func (c *Client) FetchProfile(ctx context.Context, tenantID, accessToken string) (*connect.IdentityProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	var ui userInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("%w: undecodable userinfo", connect.ErrProviderError)
	}
	if len(ui.Error) > 0 {
		return nil, fmt.Errorf("%w: %s", connect.ErrProviderError, string(ui.Error))
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: userinfo http %d", connect.ErrProviderError, resp.StatusCode)
	}

	verified := ui.VerifiedEmail
	if ui.EmailVerified != nil {
		verified = *ui.EmailVerified
	}

	return &connect.IdentityProfile{
		SubjectID:     subjectID(ui.Sub, ui.ID),
		Email:         ui.Email,
		EmailVerified: verified,
		GivenName:     ui.GivenName,
		FamilyName:    ui.FamilyName,
		PictureURL:    ui.Picture,
		Gender:        ui.Gender,
	}, nil
}

// subjectID normaliza el subject numérico. Preferimos "sub" y caemos a "id"
// (nombre legacy del mismo concepto). Upstream no define qué pasa si vienen
// ambos con valores distintos; acá gana "sub". Valor ilegible => 0 (válido:
// flujos viejos lo omiten).
func subjectID(sub, id json.RawMessage) int64 {
	for _, raw := range []json.RawMessage{sub, id} {
		if v, ok := parseSubject(raw); ok {
			return v
		}
	}
	return 0
}

func parseSubject(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FetchImage downloads the profile picture bytes (connect.PortraitFetcher).
func (c *Client) FetchImage(ctx context.Context, pictureURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pictureURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portrait fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("portrait http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPortraitBytes))
}
