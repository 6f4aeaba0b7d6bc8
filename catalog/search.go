package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sahilm/fuzzy"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme/sdk"
)

// ErrSearchUnavailable is returned while the searcher is set to fail.
var ErrSearchUnavailable = errors.New("catalog: search unavailable")

const (
	DefaultSearchTTL     = 5 * time.Minute
	DefaultSearchCleanup = 10 * time.Minute
	DefaultSearchLimit   = 10
)

var _ sdk.Searcher = (*Searcher)(nil)

// Searcher ranks products by fuzzy match on name and category. Results are
// cached per normalized query.
type Searcher struct {
	products []Product
	limit    int
	latency  time.Duration
	logger   *xlog.Logger
	cache    *gocache.Cache

	mu   sync.RWMutex
	fail error
}

// SearchOption configures a Searcher.
type SearchOption func(*Searcher)

// WithLimit caps the number of returned items.
func WithLimit(n int) SearchOption {
	return func(s *Searcher) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLatency delays every uncached query, simulating a remote call.
func WithLatency(d time.Duration) SearchOption {
	return func(s *Searcher) { s.latency = d }
}

// WithSearchLogger sets the logger.
func WithSearchLogger(l *xlog.Logger) SearchOption {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSearcher indexes products.
func NewSearcher(products []Product, opts ...SearchOption) *Searcher {
	s := &Searcher{
		products: append([]Product(nil), products...),
		limit:    DefaultSearchLimit,
		logger:   xlog.Default(),
		cache:    gocache.New(DefaultSearchTTL, DefaultSearchCleanup),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetFailure makes later queries fail with err; nil restores service.
func (s *Searcher) SetFailure(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
	s.cache.Flush()
}

func (s *Searcher) Query(ctx context.Context, text string) (sdk.SearchResults, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	res := sdk.SearchResults{Query: text}

	s.mu.RLock()
	fail := s.fail
	s.mu.RUnlock()
	if fail != nil {
		return res, fail
	}

	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.(sdk.SearchResults); ok {
			s.logger.Debug().Str("query", key).Msg("catalog: search cache hit")
			cached.Query = text
			return cached, nil
		}
	}

	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return res, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	matches := fuzzy.FindFrom(key, productSource(s.products))
	res.Total = len(matches)
	for i, m := range matches {
		if i >= s.limit {
			break
		}
		p := s.products[m.Index]
		res.Items = append(res.Items, sdk.SearchItem{
			ID:    p.ID,
			Name:  p.Name,
			URL:   p.URL,
			Image: p.Image,
			Price: p.Price,
		})
	}
	s.cache.Set(key, res, gocache.DefaultExpiration)
	return res, nil
}

// productSource exposes products to fuzzy matching.
type productSource []Product

func (p productSource) String(i int) string {
	return strings.ToLower(p[i].Name + " " + p[i].Category)
}

func (p productSource) Len() int { return len(p) }
