package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/model"
)

// ResolvePrice returns the unit price in force at asOf. The pre-sale price
// applies strictly before PresaleEndsAt; the cutoff instant itself is general.
func ResolvePrice(event *model.Event, asOf time.Time) decimal.Decimal {
	if asOf.Before(event.PresaleEndsAt) {
		return event.PresalePrice
	}
	return event.GeneralPrice
}

// Quote describes the price in force at asOf.
func Quote(event *model.Event, asOf time.Time) model.PriceQuote {
	return model.PriceQuote{
		EventID:   event.ID,
		UnitPrice: ResolvePrice(event, asOf),
		Presale:   asOf.Before(event.PresaleEndsAt),
		AsOf:      asOf,
	}
}

// Total is quantity times unit price.
func Total(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
