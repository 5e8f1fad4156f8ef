package giftcatalog

import (
	"context"
	"errors"
)

var ErrGiftNotFound = errors.New("gift not found")

type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierLuxury  Tier = "luxury"
)

// Price bands for tier derivation, in minor units.
const (
	premiumFloor = 1_000
	luxuryFloor  = 10_000
)

// TierFor derives the display tier from the gift price.
func TierFor(priceMinor int64) Tier {
	switch {
	case priceMinor >= luxuryFloor:
		return TierLuxury
	case priceMinor >= premiumFloor:
		return TierPremium
	default:
		return TierBasic
	}
}

type Item struct {
	GiftID     string
	PriceMinor int64
	Tier       Tier
}

type Catalog interface {
	Get(ctx context.Context, giftID string) (Item, error)
	List(ctx context.Context) ([]Item, error)
	// Upsert writes a catalog item, deriving its tier from the price.
	Upsert(ctx context.Context, giftID string, priceMinor int64) (Item, error)
}
