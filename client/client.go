package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/totegamma/curatorgate"
)

const (
	defaultTimeout = 3 * time.Second
	accessCacheTTL = 30 * time.Second
)

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	baseURL   string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(accessCacheTTL, 2*accessCacheTTL),
		userAgent: "curatorgate-client/" + curatorgate.Version,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// VerifyResult is the server's verdict plus the session token it handed
// out, if any.
type VerifyResult struct {
	curatorgate.VerifyResponse
	Session string
}

// Verify submits an invite code. token may be empty for anonymous callers.
func (c *Client) Verify(ctx context.Context, token string, request curatorgate.VerifyRequest) (VerifyResult, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return VerifyResult{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/access/verify", token, body)
	if err != nil {
		return VerifyResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest, http.StatusInternalServerError:
	default:
		return VerifyResult{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result VerifyResult
	err = json.NewDecoder(resp.Body).Decode(&result.VerifyResponse)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to decode response: %v", err)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == curatorgate.SessionCookieName {
			result.Session = cookie.Value
		}
	}

	return result, nil
}

// HasAccess asks whether the session behind token may enter scope. Positive
// answers are cached briefly; grants are never revoked.
func (c *Client) HasAccess(ctx context.Context, token, scope string) (bool, error) {
	cacheKey := "access:" + token + ":" + scope
	if _, found := c.cache.Get(cacheKey); found {
		slog.DebugContext(ctx, "Cache hit for access check", slog.String("scope", scope), slog.String("module", "client"))
		return true, nil
	}

	path := "/access/check"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}

	var check curatorgate.CheckResponse
	if err := c.requestJSON(ctx, http.MethodGet, path, token, nil, http.StatusOK, &check); err != nil {
		return false, err
	}

	if check.HasAccess {
		c.cache.Set(cacheKey, true, cache.DefaultExpiration)
	}
	return check.HasAccess, nil
}

func (c *Client) IssueCode(ctx context.Context, adminToken string, request curatorgate.IssueRequest) (curatorgate.IssuedCode, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return curatorgate.IssuedCode{}, err
	}

	var issued curatorgate.IssuedCode
	err = c.requestJSON(ctx, http.MethodPost, "/admin/codes", adminToken, body, http.StatusCreated, &issued)
	if err != nil {
		return curatorgate.IssuedCode{}, err
	}
	return issued, nil
}

func (c *Client) GetCode(ctx context.Context, adminToken, code string) (curatorgate.IssuedCode, error) {
	var issued curatorgate.IssuedCode
	err := c.requestJSON(ctx, http.MethodGet, "/admin/codes/"+url.PathEscape(code), adminToken, nil, http.StatusOK, &issued)
	if err != nil {
		return curatorgate.IssuedCode{}, err
	}
	return issued, nil
}

func (c *Client) requestJSON(ctx context.Context, method, path, token string, body []byte, expect int, response any) error {
	resp, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expect {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %v", err)
	}
	return resp, nil
}
