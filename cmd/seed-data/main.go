// Command seed-data loads a product catalog JSON and an initial admin
// account into the configured snapshot store, preparing a fresh deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/orderdesk/internal/app"
	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/product"
)

type productJSON struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Brand    string          `json:"brand"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

func main() {
	var (
		dataDir      string
		backend      string
		databaseURL  string
		productsFile string
		adminUser    string
		adminPass    string
		adminPepper  string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory for snapshot files")
	flag.StringVar(&backend, "storage", "file", "snapshot backend: file or postgres")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminUser, "admin-user", auth.DefaultUsername, "admin username to seed")
	flag.StringVar(&adminPass, "admin-password", "", "admin password to seed (or ORDERDESK_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&adminPepper, "admin-pepper", "", "HMAC pepper for password hashing (or ORDERDESK_ADMIN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if backend == app.StoragePostgres && databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPass == "" {
		adminPass = os.Getenv("ORDERDESK_SEED_ADMIN_PASSWORD")
	}
	if adminPepper == "" {
		adminPepper = os.Getenv("ORDERDESK_ADMIN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := &app.Config{DataDir: dataDir, Storage: backend, DatabaseURL: databaseURL}
	cfg.ApplyDefaults()

	if err := run(ctx, cfg, productsFile, adminUser, adminPass, adminPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, cfg *app.Config, productsFile, adminUser, adminPass, pepper string) error {
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := seedProducts(ctx, store, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedAdmin(ctx, store, adminUser, adminPass, pepper); err != nil {
		return errors.Wrap(err, "seed admin")
	}
	return nil
}

func seedProducts(ctx context.Context, store interface {
	SaveCatalog(context.Context, []product.Product) error
}, productsFile string,
) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var records []productJSON
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	products := make([]product.Product, 0, len(records))
	for _, r := range records {
		if r.ID == "" || r.Stock < 0 {
			return errors.Errorf("invalid product record %q", r.ID)
		}
		products = append(products, product.Product{
			ID:       r.ID,
			Category: r.Category,
			Brand:    r.Brand,
			Name:     r.Name,
			Price:    r.Price,
			Stock:    r.Stock,
		})
	}

	slog.Info("seeding products", slog.Int("count", len(products)))
	return store.SaveCatalog(ctx, products)
}

func seedAdmin(ctx context.Context, store interface {
	SaveAdmins(context.Context, []auth.Admin) error
}, username, password, pepper string,
) error {
	hasher := auth.NewHasher(pepper)
	accounts := auth.NewAccounts(nil, hasher)
	if password != "" {
		accounts = auth.NewAccounts([]auth.Admin{{
			Username: username,
			PassHash: hasher.Hash(password),
		}}, hasher)
	}

	slog.Info("seeding admin", slog.String("username", username))
	return store.SaveAdmins(ctx, accounts.Snapshot())
}
