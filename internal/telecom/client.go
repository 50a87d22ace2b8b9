// Package telecom is the HTTP client for the carrier gateway: login, usage
// query and flow package detail.
package telecom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

var (
	// ErrSessionInvalid is returned when the provider rejects a cached session.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrMalformedResponse is returned when a successful response does not
	// decode into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

const (
	codeSuccess        = "0000"
	codeSessionInvalid = "X201"

	defaultClientVersion = "12.2.0"
	defaultTimeout       = 30 * time.Second
)

// Endpoint paths relative to the gateway base URL.
const (
	pathLogin         = "/login"
	pathImportantData = "/qryImportantData"
	pathFluxPackage   = "/userFluxPackage"
)

// Client talks to the carrier gateway over JSON.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	clientVersion string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithClientVersion sets the client version header sent to the gateway.
func WithClientVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.clientVersion = v
		}
	}
}

// NewClient creates a gateway client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		clientVersion: defaultClientVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates phone/password. A provider rejection is reported in the
// result, not as an error; errors mean the provider could not be reached or
// answered with something unreadable.
func (c *Client) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	env, err := c.post(ctx, pathLogin, map[string]string{
		"phonenum": phone,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Message: env.HeaderInfos.Reason}
	if env.ResponseData == nil {
		return result, nil
	}
	if env.ResponseData.ResultDesc != "" {
		result.Message = env.ResponseData.ResultDesc
	}

	var data loginData
	if len(env.ResponseData.Data) > 0 {
		if err := json.Unmarshal(env.ResponseData.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to parse login data: %w", err)
		}
	}

	if env.ResponseData.ResultCode == codeSuccess && len(data.LoginSuccessResult) > 0 {
		result.Success = true
		result.Payload = data.LoginSuccessResult
		return result, nil
	}

	if data.LoginFailResult != nil {
		if v, ok := data.LoginFailResult.LoginFailTime.Float64(); ok {
			n := int(v)
			result.FailCount = &n
		}
	}
	return result, nil
}

// FetchUsage queries the usage payload with a cached session.
func (c *Client) FetchUsage(ctx context.Context, state models.SessionState) (*ImportantData, error) {
	raw, err := c.RawImportantData(ctx, state)
	if err != nil {
		return nil, err
	}

	var data ImportantData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse usage data: %w", ErrMalformedResponse, err)
	}
	return &data, nil
}

// FetchPackageDetail queries the flow package listing with a cached session.
func (c *Client) FetchPackageDetail(ctx context.Context, state models.SessionState) (*FluxPackage, error) {
	raw, err := c.RawFluxPackage(ctx, state)
	if err != nil {
		return nil, err
	}

	var pkg FluxPackage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse flux package: %w", ErrMalformedResponse, err)
	}
	return &pkg, nil
}

// RawImportantData returns the undecoded usage payload.
func (c *Client) RawImportantData(ctx context.Context, state models.SessionState) (json.RawMessage, error) {
	return c.sessionCall(ctx, pathImportantData, state)
}

// RawFluxPackage returns the undecoded flow package payload.
func (c *Client) RawFluxPackage(ctx context.Context, state models.SessionState) (json.RawMessage, error) {
	return c.sessionCall(ctx, pathFluxPackage, state)
}

func (c *Client) sessionCall(ctx context.Context, path string, state models.SessionState) (json.RawMessage, error) {
	token, err := sessionToken(state)
	if err != nil {
		return nil, err
	}

	env, err := c.post(ctx, path, map[string]string{
		"phonenum": state.Owner,
		"token":    token,
	})
	if err != nil {
		return nil, err
	}

	if env.HeaderInfos.Code == codeSessionInvalid {
		return nil, fmt.Errorf("%w: %s", ErrSessionInvalid, env.HeaderInfos.Reason)
	}
	if env.ResponseData == nil {
		return nil, fmt.Errorf("%s returned no data (code %s): %s", path, env.HeaderInfos.Code, env.HeaderInfos.Reason)
	}
	if code := env.ResponseData.ResultCode; code != "" && code != codeSuccess {
		return nil, fmt.Errorf("%s failed (code %s): %s", path, code, env.ResponseData.ResultDesc)
	}
	return env.ResponseData.Data, nil
}

// sessionToken extracts the token from the cached login payload.
func sessionToken(state models.SessionState) (string, error) {
	if !state.HasSession() {
		return "", fmt.Errorf("%w: no cached login", ErrSessionInvalid)
	}

	var info struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(state.LoginInfo, &info); err != nil || info.Token == "" {
		return "", fmt.Errorf("%w: cached login has no token", ErrSessionInvalid)
	}
	return info.Token, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Version", c.clientVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed (status %d): %s", path, resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return &env, nil
}
