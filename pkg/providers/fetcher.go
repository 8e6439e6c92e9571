package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/time/rate"

	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/metrics"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

const (
	// DefaultMinDelay is the pause enforced between two provider calls
	DefaultMinDelay = 500 * time.Millisecond
	// DefaultMaxIDsPerCall bounds the identifiers sent in one batched call
	DefaultMaxIDsPerCall = 50
	// DefaultTimeout is the per-request timeout
	DefaultTimeout = 30 * time.Second
	// MaxResponseSize is the maximum response body size (50MB)
	MaxResponseSize = 50 * 1024 * 1024

	// IDsPlaceholder is replaced by a comma separated batch of identifiers in FetchIDs
	IDsPlaceholder = "{ids}"
)

// FetcherConfig tunes the provider fetcher
type FetcherConfig struct {
	MinDelay time.Duration
	// MaxIDsPerCall applies to sources missing from SourceMaxIDsPerCall
	MaxIDsPerCall       int
	SourceMaxIDsPerCall map[models.SourceTag]int
	Timeout             time.Duration
	UserAgent           string
}

// DefaultSourceMaxIDsPerCall holds the identifier limits each provider accepts in one call
func DefaultSourceMaxIDsPerCall() map[models.SourceTag]int {
	return map[models.SourceTag]int{
		models.SourceWikidata:           50,
		models.SourceParlementEuropeen:  25,
		models.SourceAssembleeNationale: 20,
		models.SourceSenat:              20,
	}
}

// DefaultFetcherConfig returns the fetcher defaults
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		MinDelay:            DefaultMinDelay,
		MaxIDsPerCall:       DefaultMaxIDsPerCall,
		SourceMaxIDsPerCall: DefaultSourceMaxIDsPerCall(),
		Timeout:             DefaultTimeout,
		UserAgent:           "iris/1.0",
	}
}

// Fetcher performs throttled GETs against provider APIs. Calls are spaced by at least
// MinDelay regardless of how many goroutines share the fetcher.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  ectologger.Logger
	config  FetcherConfig
}

// NewFetcher creates a fetcher
func NewFetcher(config FetcherConfig, logger ectologger.Logger) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxIDsPerCall <= 0 {
		config.MaxIDsPerCall = DefaultMaxIDsPerCall
	}

	limit := rate.Inf
	if config.MinDelay > 0 {
		limit = rate.Every(config.MinDelay)
	}

	return &Fetcher{
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		config:  config,
	}
}

// MaxIDsPerCall returns the batch size used for source
func (f *Fetcher) MaxIDsPerCall(source models.SourceTag) int {
	if max := f.config.SourceMaxIDsPerCall[source]; max > 0 {
		return max
	}
	return f.config.MaxIDsPerCall
}

// Get fetches rawURL once the limiter allows it
func (f *Fetcher) Get(ctx context.Context, source models.SourceTag, rawURL string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "providers.Fetcher.Get")
	defer span.End()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ProviderRequestDuration.WithLabelValues(string(source), "error").Observe(time.Since(start).Seconds())
		f.logger.WithContext(ctx).WithError(err).Errorf("Provider request failed: GET %s", rawURL)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	duration := time.Since(start)
	metrics.ProviderRequestDuration.WithLabelValues(string(source), strconv.Itoa(resp.StatusCode)).Observe(duration.Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), MaxResponseSize)
	}

	f.logger.WithContext(ctx).Debugf("Provider GET %s -> %d (%s)", rawURL, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s returned %d", rawURL, resp.StatusCode)
	}
	return body, nil
}

// FetchIDs fetches ids in batches of at most MaxIDsPerCall(source), substituting each batch for
// IDsPlaceholder in template. A failed batch is reported as a ProviderError and the
// remaining batches are still fetched; only cancellation stops early.
func (f *Fetcher) FetchIDs(ctx context.Context, source models.SourceTag, template string, ids []string) ([][]byte, []error, error) {
	ctx, span := tracing.StartSpan(ctx, "providers.Fetcher.FetchIDs")
	defer span.End()

	if !strings.Contains(template, IDsPlaceholder) {
		return nil, nil, fmt.Errorf("url template %q has no %s placeholder", template, IDsPlaceholder)
	}

	var (
		bodies [][]byte
		errs   []error
	)
	for i, batch := range Batches(ids, f.MaxIDsPerCall(source)) {
		if err := ctx.Err(); err != nil {
			return bodies, errs, err
		}

		rawURL := strings.ReplaceAll(template, IDsPlaceholder, url.QueryEscape(strings.Join(batch, ",")))
		body, err := f.Get(ctx, source, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return bodies, errs, ctx.Err()
			}
			errs = append(errs, jobs.NewProviderError(string(source), fmt.Sprintf("batch %d", i), err))
			continue
		}
		bodies = append(bodies, body)
	}
	return bodies, errs, nil
}

// Batches splits ids into consecutive groups of at most max identifiers
func Batches(ids []string, max int) [][]string {
	if max <= 0 {
		max = DefaultMaxIDsPerCall
	}
	var out [][]string
	for start := 0; start < len(ids); start += max {
		end := start + max
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
