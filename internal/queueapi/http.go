package queueapi

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
	"time"

	"qms/kiosk-service/internal/store"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpClient struct {
	baseURL string
	token   string
	client  *http.Client
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newHTTPClient(baseURL, token string) *httpClient {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *httpClient) NextQueue(ctx context.Context, serviceType string) (QueueData, error) {
	var data QueueData
	err := c.do(ctx, http.MethodPost, "/queue/next", map[string]string{"service_type": serviceType}, &data)
	return data, err
}

func (c *httpClient) GetQueue(ctx context.Context, queueID string) (QueueData, error) {
	var data QueueData
	err := c.do(ctx, http.MethodGet, "/queue/"+url.PathEscape(queueID), nil, &data)
	return data, err
}

func (c *httpClient) ListQueues(ctx context.Context, filter Filter) ([]QueueData, error) {
	params := url.Values{}
	if filter.Date != "" {
		params.Set("date", filter.Date)
	}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.ServiceType != "" {
		params.Set("service_type", filter.ServiceType)
	}
	path := "/queue"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var payload struct {
		Queues []QueueData `json:"queues"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Queues, nil
}

func (c *httpClient) UpdateStatus(ctx context.Context, queueID, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	return c.do(ctx, http.MethodPatch, "/queue/"+url.PathEscape(queueID)+"/status", map[string]string{"status": status}, nil)
}

func (c *httpClient) Login(ctx context.Context, username, password string) (string, error) {
	var payload struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, &payload)
	if err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errors.New("login response missing token")
	}
	return payload.Token, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body interface{}, target interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && path == "/auth/login" {
		return store.ErrInvalidCredentials
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr)
		detail := apiErr.Message
		if detail == "" {
			detail = apiErr.Error
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("queue api %s %s: %d %s", method, path, resp.StatusCode, detail)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
