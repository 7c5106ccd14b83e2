package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"association-membership/internal/domain"
	"association-membership/internal/domain/model"
	"association-membership/internal/domain/ports/repository"
)

var _ repository.CatalogRepository = (*catalogRepo)(nil)

type catalogRepo struct{ pool *pgxpool.Pool }

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

const productColumns = `id, subscription_id, name, price, tax_rate, recurrent, duration_days`

func (r *catalogRepo) ListSubscriptions(ctx context.Context, tx repository.Tx) ([]*model.Subscription, error) {
	const q = `SELECT id, name, description FROM subscriptions ORDER BY name;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s := &model.Subscription{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *catalogRepo) ListProducts(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE subscription_id=$1 ORDER BY name;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Product
	for rows.Next() {
		p := &model.Product{}
		if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.Name, &p.Price, &p.TaxRate, &p.Recurrent, &p.DurationDays); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *catalogRepo) FindSubscriptionByName(ctx context.Context, tx repository.Tx, name string) (*model.Subscription, error) {
	const q = `SELECT id, name, description FROM subscriptions WHERE name=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, name)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.Name, &s.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *catalogRepo) FindProductByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func (r *catalogRepo) FindProduct(ctx context.Context, tx repository.Tx, subscriptionName, productName string) (*model.Subscription, *model.Product, error) {
	sub, err := r.FindSubscriptionByName(ctx, tx, subscriptionName)
	if err != nil {
		return nil, nil, err
	}
	const q = `SELECT ` + productColumns + ` FROM products WHERE subscription_id=$1 AND name=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, sub.ID, productName)
	if err != nil {
		return nil, nil, err
	}
	p, err := scanProduct(row)
	if err != nil {
		return nil, nil, err
	}
	return sub, p, nil
}

func (r *catalogRepo) SaveSubscription(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (id, name, description) VALUES ($1,$2,$3)
ON CONFLICT (name) DO UPDATE SET description=$3;`
	if _, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Name, s.Description); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *catalogRepo) SaveProduct(ctx context.Context, tx repository.Tx, p *model.Product) error {
	const q = `
INSERT INTO products (id, subscription_id, name, price, tax_rate, recurrent, duration_days)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (subscription_id, name) DO UPDATE SET
  price=$4, tax_rate=$5, recurrent=$6, duration_days=$7;`
	if _, err := execSQL(ctx, r.pool, tx, q, p.ID, p.SubscriptionID, p.Name, p.Price, p.TaxRate, p.Recurrent, p.DurationDays); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	if err := row.Scan(&p.ID, &p.SubscriptionID, &p.Name, &p.Price, &p.TaxRate, &p.Recurrent, &p.DurationDays); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
