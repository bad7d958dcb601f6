package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError carries the message an external service returned with a failure
type APIError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

const maxErrorBody = 4 << 10

func newJSONRequest(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON sends req and decodes a 2xx body into out. Other statuses become
// an *APIError carrying the service's own error text.
func doJSON(httpClient *http.Client, service string, req *http.Request, out interface{}) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromBody(service, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", service, err)
	}
	return nil
}

func errorFromBody(service string, resp *http.Response) error {
	apiErr := &APIError{Service: service, StatusCode: resp.StatusCode}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bodyBytes) == 0 {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	var errorResp map[string]interface{}
	if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
		if code, ok := errorResp["errorCode"].(string); ok {
			apiErr.Code = code
		} else if code, ok := errorResp["code"].(string); ok {
			apiErr.Code = code
		}
		for _, key := range []string{"error", "message", "error_message"} {
			if msg, ok := errorResp[key].(string); ok && msg != "" {
				apiErr.Message = msg
				return apiErr
			}
		}
	}

	apiErr.Message = strings.TrimSpace(string(bodyBytes))
	return apiErr
}
