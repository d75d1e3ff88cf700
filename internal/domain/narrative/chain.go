package narrative

import (
	"context"
	"errors"
	"time"

	"github.com/okian/egrainsight/pkg/logger"
	"github.com/okian/egrainsight/pkg/metrics"
)

const defaultProviderTimeout = 2 * time.Second

// ChainOption applies a configuration option to a Chain.
type ChainOption func(*Chain)

// WithProviders appends best-effort providers, tried in the given order
// before the template provider.
func WithProviders(providers ...Provider) ChainOption {
	return func(c *Chain) {
		for _, p := range providers {
			if p != nil {
				c.providers = append(c.providers, p)
			}
		}
	}
}

// WithProviderTimeout bounds each best-effort provider call.
func WithProviderTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithChainLogger sets the logger for provider failures.
func WithChainLogger(l logger.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// Chain tries providers in rank order and always ends with templates.
type Chain struct {
	providers []Provider
	fallback  *TemplateProvider
	timeout   time.Duration
	logger    logger.Logger
}

// NewChain returns a chain ending with fallback.
func NewChain(fallback *TemplateProvider, opts ...ChainOption) *Chain {
	if fallback == nil {
		fallback = NewTemplateProvider(nil)
	}
	c := &Chain{fallback: fallback, timeout: defaultProviderTimeout, logger: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) Name() string { return "chain" }

// Templates returns the guaranteed last provider.
func (c *Chain) Templates() *TemplateProvider { return c.fallback }

// Narrate returns the first successful narrative. Failures of best-effort
// providers are logged and skipped; only the template provider's error
// reaches the caller.
func (c *Chain) Narrate(ctx context.Context, req Request) (Narrative, error) {
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			break
		}
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		n, err := p.Narrate(pctx, req)
		cancel()
		if err == nil && n.Interpretation != "" {
			if n.Provider == "" {
				n.Provider = p.Name()
			}
			if n.Language == "" {
				n.Language = req.Language
			}
			metrics.RecordNarration(p.Name())
			return n, nil
		}
		if err == nil {
			err = errors.New("empty narrative")
		}
		metrics.RecordProviderFailure(p.Name())
		c.logger.Warn(ctx, "narrative provider failed, falling back",
			logger.String("provider", p.Name()),
			logger.String("analysis", string(req.Analysis)),
			logger.String("language", req.Language),
			logger.Error(err))
	}

	n, err := c.fallback.Narrate(ctx, req)
	if err != nil {
		var mt *MissingTranslationError
		if errors.As(err, &mt) {
			lang, cerr := Canonical(mt.Language)
			if cerr != nil {
				lang = "invalid"
			}
			metrics.RecordMissingTranslation(lang)
		}
		return Narrative{}, err
	}
	metrics.RecordNarration(c.fallback.Name())
	return n, nil
}

// ProviderFunc adapts a function into a named Provider.
func ProviderFunc(name string, fn func(context.Context, Request) (Narrative, error)) Provider {
	return funcProvider{name: name, fn: fn}
}

type funcProvider struct {
	name string
	fn   func(context.Context, Request) (Narrative, error)
}

func (f funcProvider) Name() string { return f.name }

func (f funcProvider) Narrate(ctx context.Context, req Request) (Narrative, error) {
	return f.fn(ctx, req)
}
