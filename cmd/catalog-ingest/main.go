// Command catalog-ingest loads gzipped producer catalog exports into the
// Postgres catalog cache. The marketplace publishes one export per sync run;
// a product is considered authoritative only when it appears in two or more
// exports, which filters out draft and test listings that show up once.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/agriteranga/storefront/internal/marketplace"
	"github.com/agriteranga/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 5_000_000
	bloomFPR      = 0.001
	progressEvery = 500_000
)

// fileResult holds the confirmed records found in a single export during pass 2.
type fileResult struct {
	seen    map[string]uint
	records map[string]marketplace.Product
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog-export-*.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "catalog-export-*.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	sort.Strings(files)
	if len(files) < 2 {
		return errors.Errorf("need at least 2 export files in %s, found %d", dataDir, len(files))
	}

	// Pass 1: Build one bloom filter of product IDs per export, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: Collect products whose ID shows up in 2+ exports.
	slog.Info("pass 2: finding confirmed products")

	products, err := findConfirmedProducts(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed products")
	}

	slog.Info("confirmed products found", slog.Int("count", len(products)))

	if len(products) == 0 {
		slog.Info("no products to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeProducts(ctx, postgres.NewCatalogRepository(pool), products); err != nil {
		return errors.Wrap(err, "write products to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per export, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(p marketplace.Product) {
			filter.AddString(p.ID)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("products", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_products", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedProducts re-streams each export and checks IDs against OTHER
// exports' bloom filters. A product is confirmed if it appears in 2 or more
// exports; later exports win when records differ.
func findConfirmedProducts(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]marketplace.Product, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all exports. Files are sorted, so iterating in
	// order makes the newest export's record the one that sticks.
	merged := make(map[string]uint)
	records := make(map[string]marketplace.Product)
	for _, r := range results {
		for id, mask := range r.seen {
			merged[id] |= mask
			records[id] = r.records[id]
		}
	}

	var confirmed []marketplace.Product
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, records[id])
		}
	}

	return confirmed, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		seen := make(map[string]uint)
		records := make(map[string]marketplace.Product)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(p marketplace.Product) {
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("products", count),
				)
			}

			// Check whether this ID appears in any OTHER export's filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(p.ID) {
					seen[p.ID] |= fileBit
					records[p.ID] = p
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_products", count),
			slog.Int("candidates", len(seen)),
		)

		results[idx] = fileResult{seen: seen, records: records}
		return nil
	}
}

// streamGzFile opens a gzip-compressed export and calls fn for each product
// line. Lines that fail to decode or carry no ID are skipped.
func streamGzFile(ctx context.Context, path string, fn func(p marketplace.Product)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var p marketplace.Product
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil || p.ID == "" {
			continue
		}
		fn(p)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeProducts upserts all confirmed products into the catalog cache.
func writeProducts(ctx context.Context, repo *postgres.CatalogRepository, products []marketplace.Product) error {
	slog.Info("writing products to database", slog.Int("count", len(products)))

	for i, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		if (i+1)%100 == 0 || i+1 == len(products) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(products)))
		}
	}

	return nil
}
