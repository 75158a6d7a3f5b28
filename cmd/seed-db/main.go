// Command seed-db loads the sample catalog and the initial admin account into
// the database. Existing products and users are left untouched.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/clared/storefront/internal/domain/product"
	"github.com/clared/storefront/internal/domain/user"
	"github.com/clared/storefront/internal/storage/postgres"
)

type productJSON struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Tags          []string        `json:"tags"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "", "admin account email (or CLARED_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or CLARED_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("CLARED_SEED_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("CLARED_SEED_ADMIN_PASSWORD")
	}
	if adminEmail == "" || adminPassword == "" {
		slog.Error("admin credentials are required: set --admin-email/--admin-password or the CLARED_SEED_ADMIN_* envs")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAdmin(ctx, postgres.NewUserRepository(pool), adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var entries []productJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("inserting products", slog.Int("count", len(entries)))

	for _, e := range entries {
		p := &product.Product{
			ID:            uuid.New().String(),
			SKU:           e.SKU,
			Name:          e.Name,
			Description:   e.Description,
			Category:      e.Category,
			Tags:          e.Tags,
			Price:         e.Price,
			StockQuantity: e.StockQuantity,
			IsAvailable:   true,
			ImageURL:      e.ImageURL,
		}
		p.Normalize()
		if p.ImageURL == "" {
			p.ImageURL = product.DefaultImageURL
		}
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "validate product %s", e.SKU)
		}

		if err := repo.Create(ctx, p); err != nil {
			if errors.Is(err, product.ErrDuplicateSKU) {
				slog.Info("product already exists, skipping", slog.String("sku", e.SKU))
				continue
			}
			return errors.Wrapf(err, "insert product %s", e.SKU)
		}

		slog.Info("inserted product", slog.String("sku", e.SKU), slog.String("name", e.Name))
	}

	return nil
}

func seedAdmin(ctx context.Context, repo *postgres.UserRepository, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := repo.GetByEmailWithPassword(ctx, email); err == nil {
		slog.Info("admin account already exists, skipping", slog.String("email", email))
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return errors.Wrap(err, "check existing admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	u := &user.User{
		ID:           uuid.New().String(),
		FirstName:    "Admin",
		LastName:     "User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := repo.Create(ctx, u); err != nil {
		return errors.Wrap(err, "create admin user")
	}

	slog.Info("created admin account", slog.String("email", email))
	return nil
}
