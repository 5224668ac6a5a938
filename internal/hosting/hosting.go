// Package hosting publishes app documents to an external host. Publishing
// is a convenience: every failure here downgrades to a local preview
// handle, never a generation failure.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrlabs/appforge/internal/apperr"
)

// Publisher pushes content to an external host and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, name, content string) (string, error)
}

// HTTPPublisher talks to a simple hosting API: POST /publish with a name
// and the document, answered with the hosted URL.
type HTTPPublisher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPPublisher(baseURL, apiKey string, timeout time.Duration) *HTTPPublisher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPPublisher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, name, content string) (string, error) {
	if p.baseURL == "" {
		return "", apperr.New(apperr.CodeTransport, "hosting is not configured")
	}

	payload, err := json.Marshal(map[string]string{"name": name, "content": content})
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "failed to encode publish request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/publish", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "failed to build publish request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "publish request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Newf(apperr.CodeTransport, "hosting API error: %d", resp.StatusCode)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperr.Wrap(err, apperr.CodeMalformedResponse, "unparsable publish response")
	}
	if result.URL == "" {
		return "", apperr.New(apperr.CodeMalformedResponse, "publish response missing url")
	}
	return result.URL, nil
}

var _ Publisher = (*HTTPPublisher)(nil)
