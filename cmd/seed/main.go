package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/lonestarmarket/backend/internal/config"
	"github.com/lonestarmarket/backend/internal/db"
	"github.com/lonestarmarket/backend/internal/model"
	"github.com/lonestarmarket/backend/internal/repository"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}

	if err := gdb.AutoMigrate(&model.Product{}); err != nil {
		return fmt.Errorf("migrate products: %w", err)
	}

	products := repository.NewProductRepository(gdb)
	force := os.Getenv("FORCE_SEED") == "1"

	img := func(s string) *string { return &s }
	samples := []*model.Product{
		{
			ID:          "seed-rice-25kg",
			Title:       "25kg Bag of Parboiled Rice",
			Description: "Long grain parboiled rice, delivered within Monrovia.",
			PriceUSD:    2850,
			SellerUID:   "seed-seller-monrovia",
			ImageURL:    img("/sample-products/rice-25kg.webp"),
		},
		{
			ID:          "seed-lappa-fabric",
			Title:       "Lappa Fabric, 6 Yards",
			Description: "Wax print lappa fabric, assorted patterns.",
			PriceUSD:    1800,
			SellerUID:   "seed-seller-monrovia",
			ImageURL:    img("/sample-products/lappa-fabric.webp"),
		},
		{
			ID:          "seed-solar-lamp",
			Title:       "Solar Lantern with Phone Charger",
			Description: "Rechargeable solar lantern with USB output.",
			PriceUSD:    2200,
			SellerUID:   "seed-seller-paynesville",
			ImageURL:    img("/sample-products/solar-lamp.webp"),
		},
		{
			ID:          "seed-palm-oil-gallon",
			Title:       "Red Palm Oil, 1 Gallon",
			Description: "Fresh red palm oil from Bong County.",
			PriceUSD:    950,
			SellerUID:   "seed-seller-gbarnga",
		},
	}

	inserted, skipped := 0, 0
	for _, p := range samples {
		existing, err := products.FindByID(ctx, p.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing %s: %w", p.ID, err)
		}
		if existing != nil {
			if !force {
				skipped++
				continue
			}
			if err := gdb.WithContext(ctx).Save(p).Error; err != nil {
				return fmt.Errorf("update %s: %w", p.ID, err)
			}
			inserted++
			continue
		}
		if err := products.Create(ctx, p); err != nil {
			return fmt.Errorf("insert %s: %w", p.ID, err)
		}
		inserted++
	}

	log.Printf("seed done: inserted=%d skipped=%d", inserted, skipped)
	return nil
}
