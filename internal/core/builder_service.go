package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jrlabs/appforge/internal/appctx"
	"github.com/jrlabs/appforge/internal/apperr"
	"github.com/jrlabs/appforge/internal/generate"
	"github.com/jrlabs/appforge/internal/hosting"
	"github.com/jrlabs/appforge/internal/logger"
	"github.com/jrlabs/appforge/internal/preview"
	"github.com/jrlabs/appforge/internal/store"
)

const generationSystemInstruction = `You are an expert web developer. Create a COMPLETE single HTML file app.
RULES:
- Start with <!DOCTYPE html>
- ALL CSS in <style> tag, ALL JS in <script> tag
- Modern CSS: variables, flexbox/grid, animations, gradients
- Modern JS: ES6+, localStorage, event handling
- Responsive and polished UI
- NO external dependencies
- Return ONLY HTML code`

// BuilderService orchestrates prompt-to-app generation on top of the
// AppStore and the external collaborators.
type BuilderService struct {
	store     store.AppStore
	generator generate.Generator
	publisher hosting.Publisher
	previews  *preview.Registry
	actx      *appctx.AppContext
	timeout   time.Duration
}

func NewBuilderService(st store.AppStore, gen generate.Generator, pub hosting.Publisher, previews *preview.Registry, actx *appctx.AppContext, timeout time.Duration) *BuilderService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BuilderService{
		store:     st,
		generator: gen,
		publisher: pub,
		previews:  previews,
		actx:      actx,
		timeout:   timeout,
	}
}

type GenerateRequest struct {
	Prompt string
	Name   string
	Title  string
	Model  string
}

// GenerateApp runs the full pipeline: validate, generate, post-process,
// host best-effort, commit. The result is always committed against this
// request, even if the caller has moved on to another app by the time the
// provider answers.
func (s *BuilderService) GenerateApp(ctx context.Context, req GenerateRequest) (*store.App, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, apperr.Validation("prompt must not be empty")
	}

	model := req.Model
	if model == "" {
		model = s.actx.Settings().Model
	}

	// Detach from the caller's cancellation: an in-flight generation is
	// finished and committed even if the originating request goes away.
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	s.actx.Log("Generating code...")
	var code string
	raw, err := s.generator.Generate(genCtx, generationSystemInstruction, "Build: "+prompt, generate.Options{Model: model})
	switch {
	case err == nil:
		code = generate.CleanResponse(raw)
		var wrapped bool
		code, wrapped = generate.EnsureDocument(code)
		if wrapped {
			s.actx.Log("Generated content lacked <!doctype html>; wrapping in a minimal HTML")
		}
	case apperr.IsCode(err, apperr.CodeTransport) || apperr.IsCode(err, apperr.CodeMalformedResponse):
		s.actx.Log("Generation failed, using local fallback")
		logger.L().Warn("all generation providers failed", zap.Error(err))
		code = generate.FallbackDocument(req.Title, prompt)
		model = ""
	default:
		return nil, err
	}
	s.actx.Log("Generated %d bytes", len(code))

	displayName := req.Name
	if displayName == "" {
		displayName = req.Title
	}

	// Hosting is a convenience step: any failure downgrades to a local
	// preview handle and the pipeline carries on.
	var hostedURL, previewRef string
	if url, err := s.publisher.Publish(genCtx, displayName, code); err == nil {
		hostedURL = url
		s.actx.Log("Hosted at: %s", url)
	} else {
		previewRef = s.previews.Put(code)
		logger.L().Info("hosting unavailable, using local preview", zap.Error(err))
	}

	app, err := s.store.Create(genCtx, store.AppDraft{
		Name:       req.Name,
		Title:      req.Title,
		Prompt:     &prompt,
		Code:       code,
		ModelUsed:  model,
		HostedURL:  hostedURL,
		PreviewRef: previewRef,
	})
	if err != nil {
		return nil, err
	}
	s.actx.Log("Created %s v1", app.Name)
	return app, nil
}

// SaveCode commits a manual edit as the app's next version.
func (s *BuilderService) SaveCode(ctx context.Context, id, code, note string) (*store.App, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperr.Validation("code must not be empty")
	}
	app, err := s.store.Update(ctx, id, code, note)
	if err != nil {
		return nil, err
	}
	s.actx.Log("Updated to v%d", app.Version)
	return app, nil
}

// Launch resolves the URL to open for an app and bumps its view counter.
// The counter bump is best-effort and never blocks the launch.
func (s *BuilderService) Launch(ctx context.Context, id string) (string, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if _, err := s.store.IncrementViews(ctx, id); err != nil {
		logger.L().Warn("failed to bump view count", zap.String("app_id", id), zap.Error(err))
	}

	if app.HostedURL != "" {
		return app.HostedURL, nil
	}
	if app.PreviewRef != "" {
		if _, ok := s.previews.Get(app.PreviewRef); ok {
			return "/preview/" + app.PreviewRef, nil
		}
	}
	// Stale or missing handle (e.g. after a restart): mint a fresh one
	// from the durable code.
	handle := s.previews.Put(app.Code)
	return "/preview/" + handle, nil
}
