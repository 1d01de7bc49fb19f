package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderdesk/internal/domain/invoice"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/payment"
	"github.com/xenking/orderdesk/internal/domain/product"
	"github.com/xenking/orderdesk/internal/domain/shipment"
)

func newTestEngine(products ...product.Product) (*order.Engine, *product.Catalog) {
	catalog := product.NewCatalog(products)
	engine := order.NewEngine(
		order.EngineConfig{},
		catalog,
		order.NewLedger(nil),
		invoice.NewLedger(nil),
		shipment.NewLedger(nil),
		payment.NewModuloAuthorizer(),
		nil,
	)
	return engine, catalog
}

func TestRun_MixedFeed(t *testing.T) {
	engine, catalog := newTestEngine(product.Product{
		ID: "P1", Name: "Hammer", Price: decimal.RequireFromString("10.00"), Stock: 20,
	})
	im := New(engine, nil, 0)

	feed := strings.Join([]string{
		"# nightly batch",
		"2026-08-01|P1:2",
		"2026-08-01|P1:2",
		"not a feed line",
		"2026-08-02|PX:1",
		"2026-08-02|P1:1|CARD",
		"2026-08-03|P1:1|BITCOIN",
		"",
	}, "\n")

	stats, err := im.Run(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Lines)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.Malformed)
	assert.Equal(t, 3, stats.Imported)
	assert.Equal(t, 2, stats.Packed)
	assert.Equal(t, 1, stats.Cancelled)

	p, err := catalog.Find("P1")
	require.NoError(t, err)
	assert.Equal(t, 17, p.Stock)
}

func TestRun_AppliesFeedDateAndMode(t *testing.T) {
	engine, _ := newTestEngine(product.Product{
		ID: "P1", Price: decimal.RequireFromString("10.00"), Stock: 20,
	})
	im := New(engine, nil, 0)

	_, err := im.Run(context.Background(), strings.NewReader("2026-08-15|P1:1|CARD\n"))
	require.NoError(t, err)

	o, err := engine.FindOrder("O1001")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPacked, o.Status)
	assert.Equal(t, order.PaymentCard, o.PaymentMode)
	assert.Equal(t, "2026-08-15", o.CreatedAt.Format("2006-01-02"))
}

func TestRun_DedupeSpansFeeds(t *testing.T) {
	engine, _ := newTestEngine(product.Product{
		ID: "P1", Price: decimal.RequireFromString("10.00"), Stock: 20,
	})
	im := New(engine, nil, 0)
	ctx := context.Background()

	_, err := im.Run(ctx, strings.NewReader("2026-08-01|P1:2\n"))
	require.NoError(t, err)

	stats, err := im.Run(ctx, strings.NewReader("2026-08-01|P1:2\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Zero(t, stats.Imported)
}

func TestOpen_GzipFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.txt.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = zw.Write([]byte("2026-08-01|P1:2\n2026-08-02|P1:1\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	engine, _ := newTestEngine(product.Product{
		ID: "P1", Price: decimal.RequireFromString("10.00"), Stock: 20,
	})
	im := New(engine, nil, 0)

	r, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	stats, err := im.Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 2, stats.Packed)
}

func TestOpen_MissingFeed(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
