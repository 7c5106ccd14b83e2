package repository

import (
	"context"

	"association-membership/internal/domain/model"
)

// CatalogRepository is read-only from the core's perspective; the catalog is
// owned by the admin surface. Save exists for seeding only.
type CatalogRepository interface {
	ListSubscriptions(ctx context.Context, tx Tx) ([]*model.Subscription, error)
	ListProducts(ctx context.Context, tx Tx, subscriptionID string) ([]*model.Product, error)
	FindSubscriptionByName(ctx context.Context, tx Tx, name string) (*model.Subscription, error)
	FindProductByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	FindProduct(ctx context.Context, tx Tx, subscriptionName, productName string) (*model.Subscription, *model.Product, error)

	SaveSubscription(ctx context.Context, tx Tx, s *model.Subscription) error
	SaveProduct(ctx context.Context, tx Tx, p *model.Product) error
}
