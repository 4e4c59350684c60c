package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bassista/go_mirror/internal/config"
	"github.com/bassista/go_mirror/internal/fscache"
	"github.com/bassista/go_mirror/internal/logger"
	"github.com/bassista/go_mirror/internal/payload"
)

const defaultFeedTimeout = 10 * time.Second

type feedArgs struct {
	URL string `json:"url"`
}

// FeedSource fetches a JSON document over HTTP and derives the payload
// values with configured expressions. The decoded document is bound as
// "data" in the expression environment; without a value expression the
// whole document becomes the payload value. A configured cache TTL wraps
// the HTTP fetch in the durable cache so restarts reuse recent documents.
type FeedSource struct {
	name       string
	interval   time.Duration
	jitter     time.Duration
	url        string
	headers    map[string]string
	includeRaw bool

	valueProg     *vm.Program
	secondaryProg *vm.Program
	tertiaryProg  *vm.Program

	fetch fscache.Func[feedArgs, any]
}

func NewFeedSource(cfg config.SourceConfig, cache *fscache.Cache) (*FeedSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed source %s: url must not be empty", cfg.Key)
	}

	s := &FeedSource{
		name:       cfg.Key,
		interval:   cfg.Interval,
		jitter:     cfg.Jitter,
		url:        cfg.URL,
		headers:    cfg.Headers,
		includeRaw: cfg.IncludeRaw,
	}

	var err error
	if s.valueProg, err = compileExpr(cfg.ValueExpr); err != nil {
		return nil, fmt.Errorf("feed source %s: value expression: %w", cfg.Key, err)
	}
	if s.secondaryProg, err = compileExpr(cfg.SecondaryExpr); err != nil {
		return nil, fmt.Errorf("feed source %s: secondary expression: %w", cfg.Key, err)
	}
	if s.tertiaryProg, err = compileExpr(cfg.TertiaryExpr); err != nil {
		return nil, fmt.Errorf("feed source %s: tertiary expression: %w", cfg.Key, err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	s.fetch = newFeedFetcher(&http.Client{Timeout: timeout}, cfg.Headers)

	if cfg.CacheTTL > 0 {
		if cache == nil {
			return nil, fmt.Errorf("feed source %s: cache_ttl set but no cache configured", cfg.Key)
		}
		wrapped, err := fscache.Wrap(cache, "feed_"+cfg.Key, cfg.CacheTTL, s.fetch)
		if err != nil {
			return nil, fmt.Errorf("feed source %s: %w", cfg.Key, err)
		}
		s.fetch = wrapped
	}
	return s, nil
}

func (s *FeedSource) Name() string { return s.name }

func (s *FeedSource) Interval() time.Duration { return s.interval }

func (s *FeedSource) Jitter() time.Duration { return s.jitter }

func (s *FeedSource) Fetch(ctx context.Context) (*payload.Payload, error) {
	doc, err := s.fetch(ctx, feedArgs{URL: s.url})
	if err != nil {
		return nil, err
	}

	env := map[string]interface{}{"data": doc}

	p := payload.New(doc)
	if s.valueProg != nil {
		if p.Value, err = runExpr(s.valueProg, env); err != nil {
			return nil, fmt.Errorf("feed source %s: value expression: %w", s.name, err)
		}
	}
	if s.secondaryProg != nil {
		if p.Secondary, err = runExpr(s.secondaryProg, env); err != nil {
			return nil, fmt.Errorf("feed source %s: secondary expression: %w", s.name, err)
		}
	}
	if s.tertiaryProg != nil {
		if p.Tertiary, err = runExpr(s.tertiaryProg, env); err != nil {
			return nil, fmt.Errorf("feed source %s: tertiary expression: %w", s.name, err)
		}
	}
	if s.includeRaw {
		p.Raw = doc
	}
	return p, nil
}

func newFeedFetcher(client *http.Client, headers map[string]string) fscache.Func[feedArgs, any] {
	return func(ctx context.Context, args feedArgs) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("error building request for %s: %w", args.URL, err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("error fetching %s: %w", args.URL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, args.URL)
		}

		var doc any
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding response from %s: %w", args.URL, err)
		}
		logger.WithComponent("feed").Debugf("fetched document from %s", args.URL)
		return doc, nil
	}
}

func compileExpr(src string) (*vm.Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	return expr.Compile(src, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables())
}

func runExpr(program *vm.Program, env map[string]interface{}) (any, error) {
	return vm.Run(program, env)
}
