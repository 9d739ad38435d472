package tooling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pkgupload/internal/logger"
)

const maxBodySize = 8 << 20

// APIError - ошибка, которую вернул Salesforce (REST или SOAP fault).
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

type apiIssue struct {
	Code    string `json:"errorCode"`
	Message string `json:"message"`
}

func issuesError(statusCode int, issues []apiIssue) error {
	if len(issues) == 0 {
		return &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
	}
	errs := make([]error, 0, len(issues))
	for _, is := range issues {
		errs = append(errs, &APIError{StatusCode: statusCode, Code: is.Code, Message: is.Message})
	}
	return errors.Join(errs...)
}

// do выполняет JSON-запрос к инстансу. path должен начинаться с "/".
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.instanceURL+path, body)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, buf)
	}

	if ct := getContentType(resp); ct != "application/json" {
		logger.FromContext(ctx).Debug("unexpected content-type", "contentType", ct, "path", path)
	}

	if out == nil || len(buf) == 0 {
		return nil
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return fmt.Errorf("parse response failed: %w", err)
	}
	return nil
}

// decodeError разбирает тело ошибки вида [{"message": "...", "errorCode": "..."}].
func decodeError(resp *http.Response, buf []byte) error {
	var issues []apiIssue
	if err := json.Unmarshal(buf, &issues); err == nil && len(issues) > 0 {
		return issuesError(resp.StatusCode, issues)
	}

	msg := strings.TrimSpace(string(buf))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func getContentType(resp *http.Response) string {
	contentType := resp.Header.Get("Content-Type")
	if end := strings.IndexByte(contentType, ';'); end != -1 {
		contentType = strings.TrimSpace(contentType[:end])
	}
	return contentType
}
