package generate

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jrlabs/appforge/internal/apperr"
	"github.com/jrlabs/appforge/internal/logger"
)

// Chain tries providers in order until one succeeds. Transport and
// malformed-response failures fall through to the next provider; anything
// else aborts. A weighted semaphore bounds concurrent generations so a
// burst of requests cannot pile up memory on large responses.
type Chain struct {
	gens    []Generator
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewChain(timeout time.Duration, maxConcurrent int64, gens ...Generator) *Chain {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Chain{
		gens:    gens,
		sem:     semaphore.NewWeighted(maxConcurrent),
		timeout: timeout,
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Generate(ctx context.Context, systemInstruction, userPrompt string, opts Options) (string, error) {
	if len(c.gens) == 0 {
		return "", apperr.New(apperr.CodeTransport, "no generation providers configured")
	}

	acquireCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.sem.Acquire(acquireCtx, 1); err != nil {
		return "", apperr.Wrap(err, apperr.CodeTransport, "generation queue full")
	}
	defer c.sem.Release(1)

	var lastErr error
	for _, g := range c.gens {
		attemptCtx, cancelAttempt := context.WithTimeout(ctx, c.timeout)
		text, err := g.Generate(attemptCtx, systemInstruction, userPrompt, opts)
		cancelAttempt()
		if err == nil {
			return text, nil
		}
		lastErr = err

		code := apperr.CodeOf(err)
		if code != apperr.CodeTransport && code != apperr.CodeMalformedResponse {
			return "", err
		}
		logger.L().Warn("generation provider failed, trying next",
			zap.String("provider", g.Name()), zap.Error(err))
	}
	return "", lastErr
}

var _ Generator = (*Chain)(nil)
