// Plugin service for making HTTP requests to the music plugin router
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/qmc/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL string = "http://localhost:8021/plugins/GeQian.order_qqmusic"

// PluginService talks to the plugin's HTTP router: QR login and credential management.
type PluginService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewPluginService creates a plugin client rooted at baseURL (scheme, host, port and router prefix).
//
// A nil limiter disables client-side throttling.
func NewPluginService(baseURL string, client *http.Client, limiter *rate.Limiter) *PluginService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &PluginService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    limiter,
	}
}

// NewLimiter returns a limiter allowing rps requests per second, or nil when rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// BaseURL returns the address requests are made against.
func (p *PluginService) BaseURL() string {
	return p.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the response carries a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPError is returned for non-2xx plugin responses.
//
// Detail holds the FastAPI "detail" field when the body carried one.
type HTTPError struct {
	StatusCode int
	Detail     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Is matches [shared.ErrAPIRequest] for every status and [shared.ErrCredentialNotFound] for 404.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrCredentialNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// NewHTTPError builds an [HTTPError] from a failed response, parsing the detail field best-effort.
func NewHTTPError(resp *APIResponse) *HTTPError {
	httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	if data, ok := resp.JSONData.(map[string]any); ok {
		if detail, ok := data["detail"].(string); ok {
			httpErr.Detail = detail
		}
	}
	return httpErr
}

// IsNotFound reports whether err is a plugin 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// CredentialStatus is the body of GET /credential/status.
type CredentialStatus struct {
	Valid bool `json:"valid"`
}

// RefreshResult is the body of a successful POST /credential/refresh.
type RefreshResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (p *PluginService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return p.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (p *PluginService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return p.do(ctx, http.MethodPost, path, data)
}

func (p *PluginService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// QRCode requests a login QR code for method ("qq" or "wx") and returns the raw payload text.
//
// The payload is base64 image data and may still be wrapped in JSON string quotes.
func (p *PluginService) QRCode(ctx context.Context, method string) (string, error) {
	resp, err := p.Get(ctx, "/get_qrcode/"+url.PathEscape(method))
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", NewHTTPError(resp)
	}
	return string(resp.Body), nil
}

// CredentialStatus fetches the current credential validity. Results are never cached.
func (p *PluginService) CredentialStatus(ctx context.Context) (*CredentialStatus, error) {
	resp, err := p.Get(ctx, "/credential/status")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, NewHTTPError(resp)
	}

	var status CredentialStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, fmt.Errorf("%w: credential status: %v", shared.ErrMalformedResponse, err)
	}
	return &status, nil
}

// CredentialValid is [PluginService.CredentialStatus] reduced to its flag.
func (p *PluginService) CredentialValid(ctx context.Context) (bool, error) {
	status, err := p.CredentialStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.Valid, nil
}

// RefreshCredential asks the plugin to refresh and persist the stored credential.
//
// A rejected refresh or an unreadable reply matches [shared.ErrRefreshFailed]; transport errors are returned as they are.
func (p *PluginService) RefreshCredential(ctx context.Context) (*RefreshResult, error) {
	resp, err := p.Post(ctx, "/credential/refresh", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, NewHTTPError(resp))
	}
	if !resp.IsJSON {
		return nil, fmt.Errorf("%w: %w: refresh result is not JSON", shared.ErrRefreshFailed, shared.ErrMalformedResponse)
	}

	var result RefreshResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", shared.ErrRefreshFailed, shared.ErrMalformedResponse, err)
	}
	return &result, nil
}

// CredentialInfo fetches the stored credential's fields. A missing credential file is a 404 [HTTPError].
func (p *PluginService) CredentialInfo(ctx context.Context) (map[string]any, error) {
	resp, err := p.Get(ctx, "/credential/info")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, NewHTTPError(resp)
	}

	info, ok := resp.JSONData.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: credential info is not a JSON object", shared.ErrMalformedResponse)
	}
	return info, nil
}
