package giftcatalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glowlive/ledger/internal/repos/giftcatalog"
)

var _ giftcatalog.Catalog = (*catalogRepo)(nil)

type catalogRepo struct{ db *sql.DB }

func New(db *sql.DB) *catalogRepo {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) Get(ctx context.Context, giftID string) (giftcatalog.Item, error) {
	var item giftcatalog.Item
	var tier string

	err := r.db.QueryRowContext(ctx, `
		SELECT gift_id, price_minor, tier
		FROM gift_catalog
		WHERE gift_id = $1
	`, giftID).Scan(&item.GiftID, &item.PriceMinor, &tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return giftcatalog.Item{}, giftcatalog.ErrGiftNotFound
		}

		return giftcatalog.Item{}, fmt.Errorf("get gift: %w", err)
	}

	item.Tier = giftcatalog.Tier(tier)

	return item, nil
}

func (r *catalogRepo) List(ctx context.Context) ([]giftcatalog.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT gift_id, price_minor, tier
		FROM gift_catalog
		ORDER BY price_minor ASC, gift_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list gifts: %w", err)
	}
	defer rows.Close()

	var items []giftcatalog.Item

	for rows.Next() {
		var item giftcatalog.Item
		var tier string

		err := rows.Scan(&item.GiftID, &item.PriceMinor, &tier)
		if err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}

		item.Tier = giftcatalog.Tier(tier)
		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate gifts: %w", err)
	}

	return items, nil
}

func (r *catalogRepo) Upsert(ctx context.Context, giftID string, priceMinor int64) (giftcatalog.Item, error) {
	tier := giftcatalog.TierFor(priceMinor)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gift_catalog (gift_id, price_minor, tier)
		VALUES ($1, $2, $3)
		ON CONFLICT (gift_id) DO UPDATE
		SET price_minor = EXCLUDED.price_minor,
		    tier = EXCLUDED.tier
	`, giftID, priceMinor, string(tier))
	if err != nil {
		return giftcatalog.Item{}, fmt.Errorf("upsert gift: %w", err)
	}

	return giftcatalog.Item{GiftID: giftID, PriceMinor: priceMinor, Tier: tier}, nil
}
