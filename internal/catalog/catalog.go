// Package catalog holds the static, process-wide catalog of purchasable SOP
// listings. The catalog is defined at startup and read-only afterwards; it is
// never persisted.
package catalog

// Listing is one purchasable SOP document.
type Listing struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	PriceMinor     int64   `json:"priceMinor"`
	ProductID      string  `json:"productId"`
	RoyaltyPercent float64 `json:"royaltyPercent"`
	CreatorID      string  `json:"creatorId"`
	Active         bool    `json:"active"`
}

type Catalog struct {
	listings []Listing
}

func New(listings ...Listing) *Catalog {
	return &Catalog{listings: listings}
}

// Default is the stock catalog shipped with the process.
func Default() *Catalog {
	return New(
		Listing{
			ID:             "sop-veg-feed",
			Title:          "Vegetative feed schedule, week by week",
			PriceMinor:     1999,
			ProductID:      "growbase.sop.vegfeed",
			RoyaltyPercent: 30,
			CreatorID:      "creator-mika",
			Active:         true,
		},
		Listing{
			ID:             "sop-flower-flush",
			Title:          "Late flower flush and harvest prep",
			PriceMinor:     2499,
			ProductID:      "growbase.sop.flowerflush",
			RoyaltyPercent: 35,
			CreatorID:      "creator-mika",
			Active:         true,
		},
		Listing{
			ID:             "sop-ipm-weekly",
			Title:          "Weekly integrated pest management rounds",
			PriceMinor:     1499,
			ProductID:      "growbase.sop.ipm",
			RoyaltyPercent: 25,
			CreatorID:      "creator-ahn",
			Active:         true,
		},
		Listing{
			ID:             "sop-retired-clone",
			Title:          "Cloning gel protocol (retired)",
			PriceMinor:     999,
			ProductID:      "growbase.sop.clone",
			RoyaltyPercent: 20,
			CreatorID:      "creator-ahn",
			Active:         false,
		},
	)
}

// Lookup returns the listing for productID regardless of its active flag;
// callers decide whether inactive listings are acceptable.
func (c *Catalog) Lookup(productID string) (Listing, bool) {
	for _, l := range c.listings {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Listing{}, false
}

// Listings returns a copy of the catalog in declaration order.
func (c *Catalog) Listings() []Listing {
	out := make([]Listing, len(c.listings))
	copy(out, c.listings)
	return out
}
