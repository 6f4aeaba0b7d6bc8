package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "My Demo Store", d.Store.Name)
	assert.Len(t, d.Store.Categories, 3)
	assert.Len(t, d.Store.Brands, 2)
	assert.Equal(t, "ltr", d.User.Language.Dir)
	require.NotEmpty(t, d.Products.Featured)

	p, ok := d.Product(1)
	require.True(t, ok)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("99.99")))
	assert.True(t, p.IsOnSale)

	_, ok = d.Product(999)
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  name: Other\n"), 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Other", d.Store.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("store: ["))
	assert.Error(t, err)
}

func searcher(t *testing.T, opts ...SearchOption) *Searcher {
	t.Helper()
	d, err := Default()
	require.NoError(t, err)
	return NewSearcher(d.Products.Featured, opts...)
}

func TestSearcher_Query(t *testing.T) {
	s := searcher(t)

	res, err := s.Query(context.Background(), "watch")
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "Smart Watch", res.Items[0].Name)
	assert.Equal(t, "watch", res.Query)

	res, err = s.Query(context.Background(), "Fashion")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Total, 3)

	res, err = s.Query(context.Background(), "zzzzqx")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.Total)
}

func TestSearcher_Limit(t *testing.T) {
	s := searcher(t, WithLimit(1))
	res, err := s.Query(context.Background(), "e")
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Greater(t, res.Total, 1)
}

func TestSearcher_CachesByNormalizedQuery(t *testing.T) {
	s := searcher(t)
	_, err := s.Query(context.Background(), "shoes")
	require.NoError(t, err)
	assert.Equal(t, 1, s.cache.ItemCount())

	res, err := s.Query(context.Background(), "  SHOES ")
	require.NoError(t, err)
	assert.Equal(t, 1, s.cache.ItemCount())
	assert.Equal(t, "  SHOES ", res.Query)
}

func TestSearcher_Failure(t *testing.T) {
	s := searcher(t)
	boom := errors.New("upstream down")
	s.SetFailure(boom)

	_, err := s.Query(context.Background(), "watch")
	assert.ErrorIs(t, err, boom)

	s.SetFailure(nil)
	_, err = s.Query(context.Background(), "watch")
	assert.NoError(t, err)
}

func TestSearcher_LatencyHonorsContext(t *testing.T) {
	s := searcher(t, WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Query(ctx, "watch")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
