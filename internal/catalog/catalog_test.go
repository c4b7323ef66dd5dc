package catalog

import "testing"

func TestLookup(t *testing.T) {
	c := Default()

	l, ok := c.Lookup("growbase.sop.vegfeed")
	if !ok {
		t.Fatalf("known product should resolve")
	}
	if !l.Active || l.CreatorID == "" || l.PriceMinor <= 0 {
		t.Fatalf("unexpected listing: %+v", l)
	}

	// Inactive listings resolve too; callers check the flag.
	l, ok = c.Lookup("growbase.sop.clone")
	if !ok || l.Active {
		t.Fatalf("inactive listing should resolve with Active=false: %+v", l)
	}

	if _, ok := c.Lookup("growbase.sop.nope"); ok {
		t.Fatalf("unknown product should miss")
	}
}

func TestListingsCopy(t *testing.T) {
	c := Default()
	ls := c.Listings()
	if len(ls) == 0 {
		t.Fatalf("default catalog should not be empty")
	}
	ls[0].Title = "mutated"
	if c.Listings()[0].Title == "mutated" {
		t.Fatalf("Listings must return a copy")
	}
}

func TestRoyaltyPercentBounds(t *testing.T) {
	for _, l := range Default().Listings() {
		if l.RoyaltyPercent < 0 || l.RoyaltyPercent > 100 {
			t.Fatalf("listing %s royalty percent out of range: %v", l.ID, l.RoyaltyPercent)
		}
	}
}
