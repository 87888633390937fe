// Package bluesky is a minimal BlueSky/AT Protocol API client covering the
// session and profile calls this service needs. It implements the domain's
// Authenticator, SessionVerifier and ProfileFetcher ports.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/blackmichael/bluesky-longpost/internal/domain"
)

const (
	defaultPDS     = "https://bsky.social"
	defaultAppView = "https://api.bsky.app"

	// Session checks sit on the request path of every mutation, so the
	// client timeout bounds how long a request can hang on the PDS.
	requestTimeout = 10 * time.Second
)

// Client is a stateless BlueSky API client. It holds no session of its own;
// every call carries the credential it was given, so a single client can be
// shared across requests.
type Client struct {
	pds        string
	appview    string
	httpClient *http.Client
}

// NewClient creates a new BlueSky API client. Empty pds or appview fall back
// to the public defaults.
func NewClient(pds, appview string) *Client {
	if pds == "" {
		pds = defaultPDS
	}
	if appview == "" {
		appview = defaultAppView
	}
	return &Client{
		pds:     pds,
		appview: appview,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// CreateSession authenticates with the PDS using an identifier and an App
// Password and returns the full session including both tokens.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*domain.AuthSession, error) {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var resp sessionResponse
	if err := c.post(ctx, "/xrpc/com.atproto.server.createSession", "", body, &resp); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.clientFault() {
			return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: create session: %v", domain.ErrUpstream, err)
	}

	return &domain.AuthSession{
		DID:        resp.DID,
		Handle:     resp.Handle,
		AccessJwt:  resp.AccessJwt,
		RefreshJwt: resp.RefreshJwt,
	}, nil
}

// ResumeSession validates an access token against the PDS and confirms it
// belongs to the claimed DID. The confirmed identity must match exactly; a
// valid token for a different account is a DID mismatch, not a success.
func (c *Client) ResumeSession(ctx context.Context, did, accessJwt string) (*domain.Session, error) {
	var resp sessionResponse
	if err := c.get(ctx, c.pds, "/xrpc/com.atproto.server.getSession", nil, accessJwt, &resp); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.clientFault() {
			if apiErr.Code == "ExpiredToken" {
				return nil, fmt.Errorf("%w: %s", domain.ErrTokenExpired, apiErr.Code)
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, apiErr.Code)
		}
		return nil, fmt.Errorf("%w: get session: %v", domain.ErrUpstream, err)
	}

	if resp.DID != did {
		return nil, fmt.Errorf("%w: session is for a different identity", domain.ErrDIDMismatch)
	}

	return &domain.Session{
		DID:    resp.DID,
		Handle: resp.Handle,
	}, nil
}

// GetProfile fetches a public actor profile from the AppView. No credential
// is required.
func (c *Client) GetProfile(ctx context.Context, actor string) (*domain.Profile, error) {
	params := url.Values{"actor": []string{actor}}

	var resp profileResponse
	if err := c.get(ctx, c.appview, "/xrpc/app.bsky.actor.getProfile", params, "", &resp); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &domain.Profile{
		DID:         resp.DID,
		Handle:      resp.Handle,
		DisplayName: resp.DisplayName,
		Avatar:      resp.Avatar,
	}, nil
}

func (c *Client) post(ctx context.Context, path, accessJwt string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pds+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+accessJwt)
	}

	return c.do(req, result)
}

func (c *Client) get(ctx context.Context, base, path string, params url.Values, accessJwt string, result any) error {
	target := base + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+accessJwt)
	}

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{StatusCode: resp.StatusCode}
		// XRPC errors carry {"error": "...", "message": "..."}.
		_ = json.Unmarshal(respBody, apiErr)
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// apiError is a non-2xx XRPC response.
type apiError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error (status %d): %s: %s", e.StatusCode, e.Code, e.Message)
}

// clientFault reports whether the error blames the request rather than the
// upstream service. XRPC reports bad or expired credentials as 400 or 401.
func (e *apiError) clientFault() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized
}

type sessionResponse struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

type profileResponse struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}
