// Command seed fills an empty catalog with deterministic sample categories
// and products for local development and load testing. Run reindex afterwards
// to make the products searchable through the index.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/utafrali/catalog-search/internal/app"
	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/logger"
)

type categoryDef struct {
	Name        string
	Description string
	Nouns       []string
	// MinPrice and MaxPrice bound generated prices in whole rupees.
	MinPrice, MaxPrice int
}

var categories = []categoryDef{
	{"Electronics", "Phones, audio and gadgets", []string{"Headphones", "Speaker", "Smartwatch", "Charger", "Earbuds", "Power Bank"}, 300, 25000},
	{"Footwear", "Shoes, boots and sandals", []string{"Running Shoe", "Sneaker", "Leather Boot", "Sandal", "Loafer", "Slipper"}, 250, 9000},
	{"Lighting", "Lamps and fixtures", []string{"Desk Lamp", "Floor Lamp", "Pendant Light", "String Lights", "Night Lamp"}, 150, 7000},
	{"Furniture", "Chairs, tables and storage", []string{"Office Chair", "Coffee Table", "Bookshelf", "Shoe Rack", "Bar Stool"}, 900, 40000},
	{"Kitchen", "Cookware and appliances", []string{"Frying Pan", "Pressure Cooker", "Mixer Grinder", "Kettle", "Knife Set"}, 200, 12000},
	{"Books", "Fiction and non-fiction", []string{"Novel", "Cookbook", "Biography", "Comic", "Travel Guide"}, 99, 1500},
}

var adjectives = []string{
	"Classic", "Compact", "Premium", "Lightweight", "Wireless", "Vintage", "Ergonomic",
	"Waterproof", "Foldable", "Smart", "Organic", "Deluxe", "Portable", "Modern",
}

var materials = []string{"cotton", "steel", "bamboo", "leather", "aluminium", "oak", "recycled plastic", "glass"}

const (
	batchSize     = 500
	insertProduct = `INSERT INTO product (name, description, image_url, price, quantity, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

const (
	countFlag = "count"
	seedFlag  = "seed"
	forceFlag = "force"
)

func main() {
	count := pflag.IntP(countFlag, "c", 10000, "number of products to insert")
	seed := pflag.Uint64(seedFlag, 42, "random seed; the same seed yields the same catalog")
	force := pflag.Bool(forceFlag, false, "insert even when the catalog already has products")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(app.ServiceName+"-seed", cfg.LogLevel)
	if *count < 1 {
		log.Error("invalid flag", slog.String("flag", "--"+countFlag), slog.Int("value", *count))
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := run(ctx, pool, *count, *seed, *force, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, pool *pgxpool.Pool, count int, seed uint64, force bool, log *slog.Logger) error {
	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM product`).Scan(&existing); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if existing > 0 && !force {
		log.Info("catalog already seeded, skipping", slog.Int("products", existing))
		return nil
	}

	ids, err := ensureCategories(ctx, pool)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	inserted := 0
	for start := 0; start < count; start += batchSize {
		batch := &pgx.Batch{}
		for i := start; i < min(start+batchSize, count); i++ {
			batch.Queue(insertProduct, generateProduct(rng, i, ids)...)
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert products %d-%d: %w", start, start+batch.Len()-1, err)
		}
		inserted += batch.Len()
		if inserted%(batchSize*4) == 0 {
			log.Info("seeding products", slog.Int("inserted", inserted), slog.Int("total", count))
		}
	}

	log.Info("seed complete",
		slog.Int("categories", len(ids)),
		slog.Int("products", inserted),
	)
	return nil
}

// ensureCategories inserts missing sample categories and returns their ids in
// the order of categories.
func ensureCategories(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	ids := make([]int64, len(categories))
	for i, c := range categories {
		err := pool.QueryRow(ctx, `SELECT id FROM category WHERE name = $1`, c.Name).Scan(&ids[i])
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("look up category %q: %w", c.Name, err)
		}
		err = pool.QueryRow(ctx,
			`INSERT INTO category (name, description, image_url) VALUES ($1, $2, $3) RETURNING id`,
			c.Name, c.Description, imageURL("categories", i),
		).Scan(&ids[i])
		if err != nil {
			return nil, fmt.Errorf("insert category %q: %w", c.Name, err)
		}
	}
	return ids, nil
}

func generateProduct(rng *rand.Rand, i int, categoryIDs []int64) []any {
	ci := rng.IntN(len(categories))
	c := categories[ci]

	adjective := adjectives[rng.IntN(len(adjectives))]
	noun := c.Nouns[rng.IntN(len(c.Nouns))]
	material := materials[rng.IntN(len(materials))]
	name := fmt.Sprintf("%s %s", adjective, noun)
	description := fmt.Sprintf("%s %s made with %s. Model %05d.", adjective, noun, material, i)

	rupees := c.MinPrice + rng.IntN(c.MaxPrice-c.MinPrice+1)
	paise := []int64{0, 0, 49, 99}[rng.IntN(4)]
	price := decimal.New(int64(rupees)*100+paise, -2)

	return []any{name, description, imageURL("products", i), price, rng.IntN(200), categoryIDs[ci]}
}

func imageURL(kind string, i int) string {
	return fmt.Sprintf("https://cdn.example.com/%s/%05d.jpg", kind, i)
}
