package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"association-membership/internal/config"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/repository"
	pg "association-membership/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	catalog := pg.NewCatalogRepo(pool)

	// If the catalog already has entries, do nothing.
	subs, err := catalog.ListSubscriptions(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) > 0 {
		fmt.Printf("%d subscriptions already present. No changes.\n", len(subs))
		return
	}

	membership := &model.Subscription{
		ID:          uuid.NewString(),
		Name:        "membership",
		Description: "Association membership",
	}
	if err := catalog.SaveSubscription(ctx, repository.NoTX, membership); err != nil {
		log.Fatalf("save subscription: %v", err)
	}

	products := []*model.Product{
		{ID: uuid.NewString(), SubscriptionID: membership.ID, Name: "annual", Price: 30.00, TaxRate: 0, Recurrent: false, DurationDays: 365},
		{ID: uuid.NewString(), SubscriptionID: membership.ID, Name: "monthly", Price: 3.00, TaxRate: 0, Recurrent: true, DurationDays: 30},
		{ID: uuid.NewString(), SubscriptionID: membership.ID, Name: "supporter", Price: 60.00, TaxRate: 0, Recurrent: true, DurationDays: 365},
	}
	for _, p := range products {
		if err := catalog.SaveProduct(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save product %q: %v", p.Name, err)
		}
		fmt.Printf("seeded: %s/%s (price=%.2f recurrent=%t days=%d)\n",
			membership.Name, p.Name, p.Price, p.Recurrent, p.DurationDays)
	}
	fmt.Println("Seeding complete.")
}
