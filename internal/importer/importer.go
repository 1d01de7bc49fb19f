// Package importer ingests bulk order feeds. A feed is a line-oriented text
// file, optionally gzip-compressed:
//
//	Date|Items[|PaymentMode]
//
// where Date is 2006-01-02 and Items are comma-separated productID:qty
// pairs. Each line becomes one order, submitted and immediately advanced
// through the intake pipeline. Exact duplicate lines are dropped.
package importer

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/domain/order"
)

const dateLayout = "2006-01-02"

// DefaultDedupeCapacity sizes the duplicate filter for typical feeds.
const DefaultDedupeCapacity = 100_000

// Stats counts the outcome of an import run.
type Stats struct {
	Lines      int
	Imported   int
	Packed     int
	Cancelled  int
	Duplicates int
	Malformed  int
}

// Importer feeds bulk order lines into the fulfillment engine.
type Importer struct {
	engine *order.Engine
	lg     *zap.Logger
	dedupe *bloom.BloomFilter
}

// New creates an Importer. capacity sizes the duplicate filter; zero means
// DefaultDedupeCapacity.
func New(engine *order.Engine, lg *zap.Logger, capacity uint) *Importer {
	if capacity == 0 {
		capacity = DefaultDedupeCapacity
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Importer{
		engine: engine,
		lg:     lg,
		dedupe: bloom.NewWithEstimates(capacity, 0.001),
	}
}

// Open opens a feed file, transparently decompressing .gz feeds.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open feed")
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "open gzip feed")
	}
	return struct {
		io.Reader
		io.Closer
	}{zr, f}, nil
}

// Run consumes the feed and returns run statistics. Malformed lines and
// duplicates are skipped and counted, never fatal; only a read failure
// aborts the run.
func (im *Importer) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stats.Lines++

		if im.dedupe.TestAndAddString(line) {
			stats.Duplicates++
			im.lg.Debug("skipping duplicate feed line", zap.Int("line", stats.Lines))
			continue
		}

		created, items, mode, ok := parseLine(line)
		if !ok {
			stats.Malformed++
			im.lg.Warn("skipping malformed feed line", zap.Int("line", stats.Lines))
			continue
		}

		o, err := im.engine.Submit(items, mode)
		if err != nil {
			stats.Malformed++
			im.lg.Warn("rejected feed order", zap.Int("line", stats.Lines), zap.Error(err))
			continue
		}
		o.CreatedAt = created
		stats.Imported++

		res, err := im.engine.Advance(ctx, o.ID)
		if err != nil {
			return stats, errors.Wrapf(err, "advance imported order %s", o.ID)
		}
		switch res.Status {
		case order.StatusPacked:
			stats.Packed++
		case order.StatusCancelled:
			stats.Cancelled++
			im.lg.Info("imported order cancelled",
				zap.String("order_id", o.ID), zap.String("reason", res.Reason))
		}
	}
	if err := sc.Err(); err != nil {
		return stats, errors.Wrap(err, "read feed")
	}
	return stats, nil
}

// parseLine splits Date|Items[|PaymentMode].
func parseLine(line string) (time.Time, []order.Item, order.PaymentMode, bool) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, nil, "", false
	}
	created, err := time.Parse(dateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, nil, "", false
	}
	items := order.DecodeItems(parts[1])
	if len(items) == 0 {
		return time.Time{}, nil, "", false
	}
	mode := order.PaymentCOD
	if len(parts) == 3 {
		switch strings.ToUpper(strings.TrimSpace(parts[2])) {
		case string(order.PaymentCOD):
			mode = order.PaymentCOD
		case string(order.PaymentCard):
			mode = order.PaymentCard
		default:
			return time.Time{}, nil, "", false
		}
	}
	return created, items, mode, true
}
