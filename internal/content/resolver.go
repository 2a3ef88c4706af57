package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned when no candidate URL produced a JSON document.
var ErrUnavailable = errors.New("content unavailable")

const directGateway = "direct"

// rejection is a gateway answer that is not a usable document. It does not count
// against the gateway's breaker.
type rejection struct {
	reason string
}

func (r *rejection) Error() string { return r.reason }

// Resolver fetches JSON metadata documents through a list of IPFS gateways.
type Resolver struct {
	client   *http.Client
	gateways []string
	passes   int
	timeout  time.Duration
	maxBytes int64
	breakers map[string]*gobreaker.CircuitBreaker
	cache    Cache
	log      *logger.Logger
}

// NewResolver creates a resolver. cache may be nil. cfg is copied, the caller's
// gateway list and breaker settings are left as they are.
func NewResolver(cfg config.IPFSConfig, cache Cache, log *logger.Logger) *Resolver {
	if cfg.CircuitBreaker != nil {
		cb := *cfg.CircuitBreaker
		cfg.CircuitBreaker = &cb
	}
	cfg.ApplyDefaults()

	r := &Resolver{
		client:   &http.Client{},
		gateways: cfg.Gateways(),
		passes:   cfg.Passes,
		timeout:  cfg.RequestTimeout.Duration,
		maxBytes: cfg.MaxDocumentBytes,
		cache:    cache,
		log:      log,
	}
	if cfg.CircuitBreaker != nil {
		r.breakers = make(map[string]*gobreaker.CircuitBreaker, len(r.gateways)+1)
		for _, gw := range r.gateways {
			r.breakers[gw] = newBreaker(gw, cfg.CircuitBreaker, log)
		}
		r.breakers[directGateway] = newBreaker(directGateway, cfg.CircuitBreaker, log)
	}
	return r
}

func newBreaker(name string, cfg *config.CircuitBreakerConfig, log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval.Duration,
		Timeout:     cfg.Timeout.Duration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infow("gateway breaker state changed", "gateway", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			var rej *rejection
			return err == nil || errors.As(err, &rej)
		},
	})
}

type candidate struct {
	gateway string
	url     string
}

// candidates lists the URLs tried for a canonical path, in order.
func (r *Resolver) candidates(path string) []candidate {
	if path == "" {
		return nil
	}
	if isHTTPURL(path) {
		return []candidate{{gateway: directGateway, url: path}}
	}
	out := make([]candidate, 0, len(r.gateways))
	for _, gw := range r.gateways {
		out = append(out, candidate{gateway: gw, url: gw + path})
	}
	return out
}

// FetchJSON resolves identifier and returns the first JSON document any candidate
// serves. The full candidate list is tried up to the configured number of passes.
func (r *Resolver) FetchJSON(ctx context.Context, identifier string) (Document, error) {
	path := CanonicalPath(identifier)
	candidates := r.candidates(path)
	if len(candidates) == 0 {
		return Document{}, fmt.Errorf("%w: empty identifier", ErrUnavailable)
	}

	cacheable := r.cache != nil && !isHTTPURL(path)
	if cacheable {
		if doc, ok := r.fromCache(ctx, path); ok {
			return doc, nil
		}
	}

	var lastErr error
	for pass := 1; pass <= r.passes; pass++ {
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return Document{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
			}

			doc, err := r.attempt(ctx, c)
			if err == nil {
				if cacheable {
					if err := r.cache.Set(ctx, path, doc.Raw); err != nil {
						r.log.Warnw("failed to cache document", "path", path, "error", err)
					}
				}
				return doc, nil
			}

			lastErr = err
			r.log.Debugw("gateway attempt failed", "pass", pass, "url", c.url, "error", err)
		}
	}

	return Document{}, fmt.Errorf("%w: %s after %d passes: %w", ErrUnavailable, path, r.passes, lastErr)
}

func (r *Resolver) fromCache(ctx context.Context, path string) (Document, bool) {
	raw, ok, err := r.cache.Get(ctx, path)
	switch {
	case err != nil:
		cacheLookup("error")
		r.log.Warnw("document cache lookup failed", "path", path, "error", err)
		return Document{}, false
	case !ok:
		cacheLookup("miss")
		return Document{}, false
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		cacheLookup("error")
		return Document{}, false
	}
	cacheLookup("hit")
	return doc, true
}

func (r *Resolver) attempt(ctx context.Context, c candidate) (Document, error) {
	start := time.Now()
	label := gatewayLabel(c.gateway)

	fetch := func() (any, error) { return r.get(ctx, c.url) }

	var (
		res any
		err error
	)
	if cb, ok := r.breakers[c.gateway]; ok {
		res, err = cb.Execute(fetch)
	} else {
		res, err = fetch()
	}

	var rej *rejection
	switch {
	case err == nil:
		fetchAttempted(label, "ok", time.Since(start))
		return res.(Document), nil //nolint:forcetypeassert
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		fetchAttempted(label, "breaker_open", time.Since(start))
	case errors.As(err, &rej):
		fetchAttempted(label, "rejected", time.Since(start))
	default:
		fetchAttempted(label, "error", time.Since(start))
	}
	return Document{}, err
}

func (r *Resolver) get(ctx context.Context, target string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Document{}, &rejection{reason: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Document{}, fmt.Errorf("gateway returned %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, &rejection{reason: "gateway returned " + resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > r.maxBytes {
		return Document{}, &rejection{reason: fmt.Sprintf("document exceeds %d bytes", r.maxBytes)}
	}

	// parsed regardless of content type
	doc, err := ParseDocument(body)
	if err != nil {
		return Document{}, &rejection{reason: err.Error()}
	}
	return doc, nil
}

func gatewayLabel(gateway string) string {
	if gateway == directGateway {
		return gateway
	}
	u, err := url.Parse(gateway)
	if err != nil || u.Host == "" {
		return gateway
	}
	return u.Host
}
