package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the OpenRouter API root; "/chat/completions" is appended.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps how much of an upstream body is read.
	MaxResponseSize = 4 * 1024 * 1024
)

// OpenRouterProvider talks to an OpenAI-compatible chat-completions endpoint
// (OpenRouter by default).
type OpenRouterProvider struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	siteURL  string
	siteName string
}

// NewOpenRouterProvider creates a provider authenticating with apiKey.
func NewOpenRouterProvider(apiKey string) *OpenRouterProvider {
	return &OpenRouterProvider{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
	}
}

// WithBaseURL sets the API root (without "/chat/completions").
func (o *OpenRouterProvider) WithBaseURL(url string) *OpenRouterProvider {
	o.baseURL = strings.TrimRight(url, "/")
	return o
}

// WithTimeout sets the per-call transport timeout.
func (o *OpenRouterProvider) WithTimeout(timeout time.Duration) *OpenRouterProvider {
	o.client.Timeout = timeout
	return o
}

// WithHTTPClient replaces the underlying HTTP client.
func (o *OpenRouterProvider) WithHTTPClient(client *http.Client) *OpenRouterProvider {
	o.client = client
	return o
}

// WithSiteURL sets the HTTP-Referer attribution header.
func (o *OpenRouterProvider) WithSiteURL(url string) *OpenRouterProvider {
	o.siteURL = url
	return o
}

// WithSiteName sets the X-Title attribution header.
func (o *OpenRouterProvider) WithSiteName(name string) *OpenRouterProvider {
	o.siteName = name
	return o
}

// TranslateRequest converts unified request to OpenRouter format
func (o *OpenRouterProvider) TranslateRequest(ctx context.Context, req *UnifiedRequest) (*ProviderRequest, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}
	if o.siteURL != "" {
		headers["HTTP-Referer"] = o.siteURL
	}
	if o.siteName != "" {
		headers["X-Title"] = o.siteName
	}

	// All sampling parameters are sent explicitly, zero values included.
	return &ProviderRequest{
		Model:   req.Model,
		URL:     o.baseURL + "/chat/completions",
		Method:  http.MethodPost,
		Headers: headers,
		Body:    req,
	}, nil
}

// Execute sends the request to the API
func (o *OpenRouterProvider) Execute(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	jsonBody, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Model: req.Model, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, &UpstreamError{Model: req.Model, Err: fmt.Errorf("%w: reading body: %v", ErrTransport, err)}
	}

	headers := make(map[string]string)
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &ProviderResponse{
		Model:      req.Model,
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       body,
		Latency:    time.Since(start),
	}, nil
}

// apiErrorBody is the error envelope returned by OpenRouter and OpenAI.
type apiErrorBody struct {
	Error struct {
		Message string      `json:"message"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// TranslateResponse converts the API response to unified format. Anything
// other than a 2xx carrying completion text comes back as *UpstreamError.
func (o *OpenRouterProvider) TranslateResponse(ctx context.Context, resp *ProviderResponse) (*UnifiedResponse, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upErr := &UpstreamError{Model: resp.Model, Status: resp.StatusCode}
		var apiErr apiErrorBody
		if err := json.Unmarshal(resp.Body, &apiErr); err == nil {
			upErr.Message = apiErr.Error.Message
			if apiErr.Error.Code != nil {
				upErr.Code = fmt.Sprint(apiErr.Error.Code)
			}
		}
		if upErr.Message == "" {
			upErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, upErr
	}

	var unifiedResp UnifiedResponse
	if err := json.Unmarshal(resp.Body, &unifiedResp); err != nil {
		return nil, &UpstreamError{Model: resp.Model, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if strings.TrimSpace(unifiedResp.Content()) == "" {
		return nil, &UpstreamError{Model: resp.Model, Status: resp.StatusCode, Err: ErrEmptyCompletion}
	}

	return &unifiedResp, nil
}

// GetInfo returns provider information
func (o *OpenRouterProvider) GetInfo() ProviderInfo {
	return ProviderInfo{
		Name:           "OpenRouter",
		BaseURL:        o.baseURL,
		RequiresAuth:   true,
		MaxRequestSize: MaxResponseSize,
	}
}
