package transform

import (
	"strings"
	"time"

	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/source"
	"github.com/snakada/ecbridge/internal/target"
)

// Customer converts a customer export row into a create-customer payload.
// now stamps the marketing-consent timestamp so the function stays pure.
func Customer(row source.Row, cfg *config.Config, now time.Time) *target.Customer {
	lastName, firstName := SplitName(row.Get(source.ColName))
	phone := NormalizePhone(row.Get(source.ColTel), cfg.Destination.PhoneCountryCode)
	addr1, addr2 := SplitAddress(row.Get(source.ColAddress))

	address := target.Address{
		FirstName: firstName,
		LastName:  lastName,
		Zip:       FormatPostal(row.Get(source.ColPostal)),
		Province:  strings.TrimSpace(row.Get(source.ColPrefecture)),
		City:      strings.TrimSpace(row.Get(source.ColCity)),
		Address1:  addr1,
		Address2:  addr2,
		Phone:     phone,
	}

	consent := &target.MarketingConsent{
		State:            "not_subscribed",
		OptInLevel:       "unknown",
		ConsentUpdatedAt: now.UTC().Format(time.RFC3339),
	}
	if truthy(row.Get(source.ColNewsletter)) {
		consent.State = "subscribed"
		consent.OptInLevel = "single_opt_in"
	}

	c := &target.Customer{
		FirstName:             firstName,
		LastName:              lastName,
		Email:                 strings.TrimSpace(row.Get(source.ColEmail)),
		Addresses:             []target.Address{address},
		EmailMarketingConsent: consent,
	}
	// The phone field is omitted entirely when normalization yields nothing;
	// the destination rejects an explicit empty string.
	if phone != "" {
		c.Phone = phone
	}
	if furigana := strings.TrimSpace(row.Get(source.ColFurigana)); furigana != "" {
		c.Note = "フリガナ: " + furigana
	}
	return c
}
