// Package ledger converts claimed purchase events into durable, idempotent
// ownership grants and royalty postings.
//
// The entitlement store and the royalty store flush independently, so a crash
// between the two writes can leave an entitlement durable without its royalty
// posting. That gap is accepted by design; Reconcile is the explicit recovery
// path, run at operator discretion after a restart.
package ledger

import (
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"growbase/internal/catalog"
	"growbase/internal/feed"
	"growbase/internal/metrics"
	"growbase/internal/model"
	"growbase/internal/store"
)

// ErrUnknownProduct marks a purchase claim for a product that is absent from
// the catalog or no longer active.
var ErrUnknownProduct = errors.New("unknown or inactive product")

// Provenance tags recorded on entitlements.
const (
	ProvenancePurchase = "purchase" // paid sale, royalty posted
	ProvenanceGrant    = "grant"    // zero-revenue grant, no royalty by design
)

type Ledger struct {
	cat  *catalog.Catalog
	ents *store.Store[*model.Entitlement]
	roys *store.Store[*model.RoyaltyEntry]
	feed feed.Writer       // optional
	mreg *metrics.Registry // optional

	// mu serializes the check-then-grant sequence. The stores lock their own
	// state, but the idempotency check and the grant are two store calls; a
	// concurrent re-delivery slipping between them would grant twice.
	mu sync.Mutex
}

func New(cat *catalog.Catalog, ents *store.Store[*model.Entitlement], roys *store.Store[*model.RoyaltyEntry]) *Ledger {
	return &Ledger{cat: cat, ents: ents, roys: roys}
}

// WithFeed attaches a best-effort purchase event sink.
func (l *Ledger) WithFeed(w feed.Writer) *Ledger {
	l.feed = w
	return l
}

// WithMetrics attaches the process metrics registry.
func (l *Ledger) WithMetrics(m *metrics.Registry) *Ledger {
	l.mreg = m
	return l
}

// VerifyResult is the outcome of one purchase verification.
type VerifyResult struct {
	Entitlement  *model.Entitlement  `json:"entitlement"`
	Royalty      *model.RoyaltyEntry `json:"royalty,omitempty"`
	AlreadyOwned bool                `json:"alreadyOwned"`
}

// RoyaltyAmount computes the creator's share in integer minor units, rounding
// ties away from zero: 999 at 33% -> 330, 100 at 12.5% -> 13.
func RoyaltyAmount(netRevenue int64, percent float64) int64 {
	return int64(math.Round(float64(netRevenue) * percent / 100))
}

// VerifyPurchase grants userID ownership of productID for the given provider
// transaction. Re-delivery of the same (user, product, transaction) triple is
// answered with the existing entitlement and AlreadyOwned set; it never grants
// twice or double-posts royalties, including when the duplicates arrive
// concurrently. netRevenue == 0 grants ownership without a royalty posting
// (promotional grants, refund placeholders).
func (l *Ledger) VerifyPurchase(userID, productID, transactionID string, netRevenue int64) (VerifyResult, error) {
	listing, found := l.cat.Lookup(productID)
	if !found || !listing.Active {
		return VerifyResult{}, ErrUnknownProduct
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.ents.Find(func(e *model.Entitlement) bool {
		return e.UserID == userID && e.ProductID == productID && e.TransactionID == transactionID
	}); ok {
		if l.mreg != nil {
			l.mreg.DuplicatePurchases.Inc()
		}
		return VerifyResult{Entitlement: existing, AlreadyOwned: true}, nil
	}

	provenance := ProvenanceGrant
	if netRevenue > 0 {
		provenance = ProvenancePurchase
	}
	ent := l.ents.Append(&model.Entitlement{
		UserID:        userID,
		ProductID:     productID,
		TransactionID: transactionID,
		Provenance:    provenance,
	})

	var entry *model.RoyaltyEntry
	if netRevenue > 0 {
		entry = l.postRoyalty(listing, transactionID, netRevenue)
	}
	if l.mreg != nil {
		l.mreg.PurchasesVerified.Inc()
	}
	l.publish(ent, netRevenue, entry)
	return VerifyResult{Entitlement: ent, Royalty: entry}, nil
}

func (l *Ledger) postRoyalty(listing catalog.Listing, transactionID string, netRevenue int64) *model.RoyaltyEntry {
	entry := l.roys.Append(&model.RoyaltyEntry{
		ProductID:      listing.ProductID,
		CreatorID:      listing.CreatorID,
		TransactionID:  transactionID,
		NetRevenue:     netRevenue,
		RoyaltyPercent: listing.RoyaltyPercent,
		RoyaltyAmount:  RoyaltyAmount(netRevenue, listing.RoyaltyPercent),
	})
	if l.mreg != nil {
		l.mreg.RoyaltyMinorUnits.Add(float64(entry.RoyaltyAmount))
	}
	return entry
}

func (l *Ledger) publish(ent *model.Entitlement, netRevenue int64, entry *model.RoyaltyEntry) {
	if l.feed == nil {
		return
	}
	ev := feed.PurchaseEvent{
		UserID:        ent.UserID,
		ProductID:     ent.ProductID,
		TransactionID: ent.TransactionID,
		NetRevenue:    netRevenue,
		TS:            time.Now().UTC().Unix(),
	}
	if entry != nil {
		ev.RoyaltyAmount = entry.RoyaltyAmount
	}
	if err := l.feed.Append(ev); err != nil {
		log.Printf("ledger: purchase event publish failed: %v", err)
		if l.mreg != nil {
			l.mreg.FeedPublishFailed.Inc()
		}
	}
}

// Owned returns the set of product ids userID is entitled to. Derived by
// scanning entitlements, never stored.
func (l *Ledger) Owned(userID string) map[string]bool {
	owned := make(map[string]bool)
	for _, e := range l.ents.Snapshot() {
		if e.UserID == userID {
			owned[e.ProductID] = true
		}
	}
	return owned
}

// ListEntitlements returns userID's entitlements, most recent first, under the
// store's limit contract.
func (l *Ledger) ListEntitlements(userID string, limit int) []*model.Entitlement {
	out := []*model.Entitlement{}
	n := l.ents.ClampLimit(limit)
	for _, e := range l.ents.Snapshot() {
		if e.UserID != userID {
			continue
		}
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out
}

// ListRoyalties returns royalty postings, most recent first, optionally
// filtered to one creator.
func (l *Ledger) ListRoyalties(creatorID string, limit int) []*model.RoyaltyEntry {
	out := []*model.RoyaltyEntry{}
	n := l.roys.ClampLimit(limit)
	for _, e := range l.roys.Snapshot() {
		if creatorID != "" && e.CreatorID != creatorID {
			continue
		}
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out
}
