package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jrlabs/appforge/internal/apperr"
)

// PollinationsGenerator calls the hosted Pollinations text endpoint. The
// endpoint answers GET /text/{prompt} with either an OpenAI-shaped JSON
// body or raw text, so both are accepted.
type PollinationsGenerator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPollinationsGenerator(baseURL, apiKey string, timeout time.Duration) *PollinationsGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PollinationsGenerator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *PollinationsGenerator) Name() string { return "pollinations" }

func (p *PollinationsGenerator) Generate(ctx context.Context, systemInstruction, userPrompt string, opts Options) (string, error) {
	endpoint := fmt.Sprintf("%s/text/%s?model=%s&json=true",
		p.baseURL,
		url.PathEscape(systemInstruction+"\n\n"+userPrompt),
		url.QueryEscape(opts.Model))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "failed to build pollinations request")
	}
	key := opts.APIKey
	if key == "" {
		key = p.apiKey
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "pollinations request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "failed to read pollinations response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Newf(apperr.CodeTransport, "pollinations API error: %d", resp.StatusCode)
	}

	// JSON choices shape first, raw text as the fallback.
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
			return parsed.Choices[0].Message.Content, nil
		}
		if parsed.Content != "" {
			return parsed.Content, nil
		}
	}
	if len(body) == 0 {
		return "", apperr.New(apperr.CodeMalformedResponse, "pollinations returned an empty body")
	}
	return string(body), nil
}

// ListModels fetches the provider's model catalog. A body that cannot be
// parsed is a MalformedResponse; callers degrade it to an empty catalog.
func (p *PollinationsGenerator) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/text/models", nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeTransport, "failed to build model list request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeTransport, "model list request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Newf(apperr.CodeTransport, "model list API error: %d", resp.StatusCode)
	}

	var raw []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeMalformedResponse, "unparsable model catalog")
	}

	models := make([]ModelInfo, 0, len(raw))
	for _, m := range raw {
		models = append(models, ModelInfo{
			ID:          m.Name,
			Name:        m.Name,
			Provider:    "Pollinations",
			Description: m.Description,
		})
	}
	return models, nil
}

var (
	_ Generator   = (*PollinationsGenerator)(nil)
	_ ModelLister = (*PollinationsGenerator)(nil)
)
