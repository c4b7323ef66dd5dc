package ledger

import "log"

// ReconcileReport summarizes one restart reconciliation pass.
type ReconcileReport struct {
	Checked  int      // paid entitlements examined
	Missing  []string // transaction ids with no royalty posting
	Reposted int      // entries posted this pass
}

// Reconcile scans paid entitlements for transactions that have no royalty
// posting, which can happen when the process crashed between the entitlement
// flush and the royalty flush. The entitlement is authoritative. With repost
// set, missing entries are posted using the listing's current price as net
// revenue; the original net revenue is not stored on the entitlement, so this
// is an approximation the operator opts into.
func (l *Ledger) Reconcile(repost bool) ReconcileReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	posted := make(map[string]bool)
	for _, e := range l.roys.Snapshot() {
		posted[e.TransactionID] = true
	}

	var report ReconcileReport
	for _, ent := range l.ents.Snapshot() {
		if ent.Provenance != ProvenancePurchase {
			continue
		}
		report.Checked++
		if posted[ent.TransactionID] {
			continue
		}
		report.Missing = append(report.Missing, ent.TransactionID)
		if !repost {
			continue
		}
		listing, found := l.cat.Lookup(ent.ProductID)
		if !found {
			log.Printf("reconcile: transaction %s references unknown product %s, skipping", ent.TransactionID, ent.ProductID)
			continue
		}
		l.postRoyalty(listing, ent.TransactionID, listing.PriceMinor)
		report.Reposted++
	}
	return report
}
