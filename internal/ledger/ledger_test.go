package ledger

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growbase/internal/catalog"
	"growbase/internal/feed"
	"growbase/internal/mirror"
	"growbase/internal/model"
	"growbase/internal/store"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		catalog.Listing{ID: "l1", ProductID: "p.veg", PriceMinor: 1999, RoyaltyPercent: 30, CreatorID: "c1", Active: true},
		catalog.Listing{ID: "l2", ProductID: "p.ipm", PriceMinor: 999, RoyaltyPercent: 33, CreatorID: "c2", Active: true},
		catalog.Listing{ID: "l3", ProductID: "p.old", PriceMinor: 500, RoyaltyPercent: 20, CreatorID: "c2", Active: false},
	)
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	m := mirror.NewFilesystem(t.TempDir())
	ents, err := store.Open[*model.Entitlement](store.Config{Kind: "entitlement", Cap: 5000}, m, nil)
	require.NoError(t, err)
	t.Cleanup(ents.Close)
	roys, err := store.Open[*model.RoyaltyEntry](store.Config{Kind: "royalty", Cap: 5000}, m, nil)
	require.NoError(t, err)
	t.Cleanup(roys.Close)
	return New(testCatalog(), ents, roys)
}

func TestRoyaltyAmount(t *testing.T) {
	cases := []struct {
		net  int64
		pct  float64
		want int64
	}{
		{1000, 30, 300},
		{999, 33, 330},  // 329.67 rounds up
		{100, 12.5, 13}, // exact midpoint rounds away from zero
		{1, 33, 0},      // 0.33 rounds down
		{0, 50, 0},
		{1000, 0, 0},
		{1000, 100, 1000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoyaltyAmount(tc.net, tc.pct), "net=%d pct=%v", tc.net, tc.pct)
	}
}

func TestVerifyPurchase_GrantsAndPosts(t *testing.T) {
	l := newLedger(t)

	res, err := l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err)
	assert.False(t, res.AlreadyOwned)
	require.NotNil(t, res.Entitlement)
	assert.Equal(t, "u1", res.Entitlement.UserID)
	assert.Equal(t, ProvenancePurchase, res.Entitlement.Provenance)
	assert.False(t, res.Entitlement.PurchasedAt.IsZero())

	require.NotNil(t, res.Royalty)
	assert.Equal(t, "c1", res.Royalty.CreatorID)
	assert.Equal(t, int64(1000), res.Royalty.NetRevenue)
	assert.Equal(t, float64(30), res.Royalty.RoyaltyPercent)
	assert.Equal(t, int64(300), res.Royalty.RoyaltyAmount)
	assert.Equal(t, "txn-1", res.Royalty.TransactionID)
}

func TestVerifyPurchase_Idempotent(t *testing.T) {
	l := newLedger(t)

	first, err := l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err)
	second, err := l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err)

	assert.True(t, second.AlreadyOwned)
	assert.Equal(t, first.Entitlement.ID, second.Entitlement.ID)
	assert.Nil(t, second.Royalty)

	assert.Equal(t, 1, l.ents.Len(), "exactly one entitlement after retry")
	assert.Equal(t, 1, l.roys.Len(), "exactly one royalty posting after retry")
}

func TestVerifyPurchase_ConcurrentDuplicateDeliveries(t *testing.T) {
	l := newLedger(t)

	// Provider retries land simultaneously; exactly one may win the grant.
	const deliveries = 16
	results := make([]VerifyResult, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.VerifyPurchase("u1", "p.veg", "txn-dup", 1000)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i], "delivery %d", i)
		if !results[i].AlreadyOwned {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh, "exactly one delivery grants")
	assert.Equal(t, 1, l.ents.Len(), "one entitlement despite concurrent retries")
	assert.Equal(t, 1, l.roys.Len(), "one royalty posting despite concurrent retries")
}

func TestVerifyPurchase_DistinctTransactionsGrantSeparately(t *testing.T) {
	l := newLedger(t)

	_, err := l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err)
	res, err := l.VerifyPurchase("u1", "p.veg", "txn-2", 1000)
	require.NoError(t, err)

	// Same user and product but a new provider transaction is a new grant.
	assert.False(t, res.AlreadyOwned)
	assert.Equal(t, 2, l.ents.Len())
	assert.Equal(t, 2, l.roys.Len())
}

func TestVerifyPurchase_FreeGrant(t *testing.T) {
	l := newLedger(t)

	res, err := l.VerifyPurchase("u1", "p.ipm", "txn-free", 0)
	require.NoError(t, err)
	assert.False(t, res.AlreadyOwned)
	assert.Nil(t, res.Royalty, "zero revenue posts no royalty")
	assert.Equal(t, ProvenanceGrant, res.Entitlement.Provenance)
	assert.Equal(t, 0, l.roys.Len())
}

func TestVerifyPurchase_UnknownOrInactive(t *testing.T) {
	l := newLedger(t)

	_, err := l.VerifyPurchase("u1", "p.missing", "txn-1", 1000)
	assert.ErrorIs(t, err, ErrUnknownProduct)

	_, err = l.VerifyPurchase("u1", "p.old", "txn-1", 1000)
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestOwnedAndProjections(t *testing.T) {
	l := newLedger(t)

	_, err := l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err)
	_, err = l.VerifyPurchase("u1", "p.ipm", "txn-2", 999)
	require.NoError(t, err)
	_, err = l.VerifyPurchase("u2", "p.veg", "txn-3", 1000)
	require.NoError(t, err)

	owned := l.Owned("u1")
	assert.Equal(t, map[string]bool{"p.veg": true, "p.ipm": true}, owned)

	ents := l.ListEntitlements("u1", 10)
	require.Len(t, ents, 2)
	assert.Equal(t, "txn-2", ents[0].TransactionID, "most recent first")

	roys := l.ListRoyalties("c2", 10)
	require.Len(t, roys, 1)
	assert.Equal(t, int64(330), roys[0].RoyaltyAmount)

	all := l.ListRoyalties("", 10)
	assert.Len(t, all, 3)
}

// failingWriter simulates an unreachable feed sink.
type failingWriter struct{ calls int }

func (f *failingWriter) Append(feed.PurchaseEvent) error {
	f.calls++
	return errors.New("broker down")
}

func TestVerifyPurchase_FeedFailureIsNotFatal(t *testing.T) {
	l := newLedger(t)
	fw := &failingWriter{}
	l = l.WithFeed(fw)

	res, err := l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err, "publish failure must not fail the purchase")
	assert.False(t, res.AlreadyOwned)
	assert.Equal(t, 1, fw.calls)
}

// captureWriter records published events.
type captureWriter struct{ events []feed.PurchaseEvent }

func (c *captureWriter) Append(ev feed.PurchaseEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func TestVerifyPurchase_PublishesOnlyNewGrants(t *testing.T) {
	l := newLedger(t)
	cw := &captureWriter{}
	l = l.WithFeed(cw)

	_, err := l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err)
	_, err = l.VerifyPurchase("u1", "p.veg", "txn-1", 1000)
	require.NoError(t, err)

	require.Len(t, cw.events, 1, "duplicate delivery publishes nothing")
	assert.Equal(t, "txn-1", cw.events[0].TransactionID)
	assert.Equal(t, int64(300), cw.events[0].RoyaltyAmount)
}

func TestReconcile(t *testing.T) {
	l := newLedger(t)

	// A normal sale, a free grant, and a paid sale whose royalty posting was
	// lost in a crash between the two flushes.
	_, err := l.VerifyPurchase("u1", "p.veg", "txn-ok", 1000)
	require.NoError(t, err)
	_, err = l.VerifyPurchase("u1", "p.ipm", "txn-free", 0)
	require.NoError(t, err)
	l.ents.Append(&model.Entitlement{
		UserID: "u2", ProductID: "p.ipm", TransactionID: "txn-lost", Provenance: ProvenancePurchase,
	})

	report := l.Reconcile(false)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, []string{"txn-lost"}, report.Missing)
	assert.Equal(t, 0, report.Reposted)
	assert.Equal(t, 1, l.roys.Len(), "dry run posts nothing")

	report = l.Reconcile(true)
	assert.Equal(t, 1, report.Reposted)
	assert.Equal(t, 2, l.roys.Len())

	entry, ok := l.roys.Find(func(e *model.RoyaltyEntry) bool { return e.TransactionID == "txn-lost" })
	require.True(t, ok)
	assert.Equal(t, int64(999), entry.NetRevenue, "repost uses the listing price")
	assert.Equal(t, RoyaltyAmount(999, 33), entry.RoyaltyAmount)

	// Reconcile after repost is clean.
	report = l.Reconcile(false)
	assert.Empty(t, report.Missing)
}
