package generate

import (
	"context"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jrlabs/appforge/internal/apperr"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

// GeminiGenerator generates code through the Google GenAI API.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeTransport, "failed to create GenAI client")
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Close() {
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, systemInstruction, userPrompt string, opts Options) (string, error) {
	modelName := opts.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	model := g.client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "gemini generation request failed")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", apperr.New(apperr.CodeMalformedResponse, "gemini returned no candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if out.Len() == 0 {
		return "", apperr.New(apperr.CodeMalformedResponse, "gemini response contained no text parts")
	}
	return out.String(), nil
}

var _ Generator = (*GeminiGenerator)(nil)
