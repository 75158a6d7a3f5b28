// Command catalog-import bulk-loads products from gzipped supplier feed
// files. Feeds are CSV lines of sku,name,description,category,price,stock;
// multiple suppliers may carry the same SKU, so SKUs are deduplicated across
// feeds with a bloom filter (first feed wins) before hitting the database.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/clared/storefront/internal/domain/product"
	"github.com/clared/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	feedColumns   = 6
)

// record is one parsed feed line.
type record struct {
	sku           string
	name          string
	description   string
	category      string
	price         decimal.Decimal
	stockQuantity int
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing productfeed*.gz files")
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
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "productfeed*.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no productfeed*.gz files in %s", dataDir)
	}

	slog.Info("parsing supplier feeds", slog.Int("files", len(files)))

	// Parse all feeds concurrently, preserving per-file order.
	parsed := make([][]record, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFeedFile(gctx, i, f, parsed))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Deduplicate SKUs across feeds: the first feed to carry a SKU wins.
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var records []record
	var dropped int
	for _, recs := range parsed {
		for _, r := range recs {
			if filter.TestOrAddString(r.sku) {
				dropped++
				continue
			}
			records = append(records, r)
		}
	}

	slog.Info("feeds merged",
		slog.Int("unique", len(records)),
		slog.Int("duplicates_dropped", dropped),
	)
	if len(records) == 0 {
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeProducts(ctx, postgres.NewProductRepository(pool), records)
}

// parseFeedFile streams one gzipped CSV feed into parsed[idx].
func parseFeedFile(ctx context.Context, idx int, path string, parsed [][]record) func() error {
	return func() error {
		var (
			recs    []record
			skipped int
			count   uint64
		)

		if err := streamGzCSV(ctx, path, func(row []string) {
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", count),
				)
			}

			r, ok := parseRecord(row)
			if !ok {
				skipped++
				return
			}
			recs = append(recs, r)
		}); err != nil {
			return errors.Wrapf(err, "parse feed %s", path)
		}

		slog.Info("feed parsed",
			slog.Int("file", idx+1),
			slog.Int("records", len(recs)),
			slog.Int("skipped", skipped),
		)

		parsed[idx] = recs
		return nil
	}
}

func parseRecord(row []string) (record, bool) {
	if len(row) != feedColumns {
		return record{}, false
	}

	price, err := decimal.NewFromString(row[4])
	if err != nil || price.IsNegative() {
		return record{}, false
	}
	stock, err := strconv.Atoi(row[5])
	if err != nil || stock < 0 {
		return record{}, false
	}

	r := record{
		sku:           row[0],
		name:          row[1],
		description:   row[2],
		category:      row[3],
		price:         price,
		stockQuantity: stock,
	}
	if r.sku == "" || r.name == "" || !product.ValidCategory(r.category) {
		return record{}, false
	}
	return r, true
}

// streamGzCSV opens a gzip-compressed CSV file and calls fn for each row.
func streamGzCSV(ctx context.Context, path string, fn func(row []string)) error {
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

	reader := csv.NewReader(gz)
	reader.FieldsPerRecord = -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		fn(row)
	}
}

// writeProducts inserts the merged records, skipping SKUs already present.
func writeProducts(ctx context.Context, repo *postgres.ProductRepository, records []record) error {
	slog.Info("writing products to database", slog.Int("count", len(records)))

	var inserted, existing int
	for i, r := range records {
		p := &product.Product{
			ID:            uuid.New().String(),
			SKU:           r.sku,
			Name:          r.name,
			Description:   r.description,
			Category:      r.category,
			Price:         r.price,
			StockQuantity: r.stockQuantity,
			IsAvailable:   true,
			ImageURL:      product.DefaultImageURL,
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			slog.Warn("invalid record, skipping",
				slog.String("sku", r.sku),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := repo.Create(ctx, p); err != nil {
			if errors.Is(err, product.ErrDuplicateSKU) {
				existing++
				continue
			}
			return errors.Wrapf(err, "insert product %s", r.sku)
		}
		inserted++

		if (i+1)%progressEvery == 0 {
			slog.Info("write progress", slog.Int("done", i+1))
		}
	}

	slog.Info("write complete",
		slog.Int("inserted", inserted),
		slog.Int("already_present", existing),
	)
	return nil
}
