package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"growbase/internal/catalog"
	"growbase/internal/config"
	"growbase/internal/ledger"
	"growbase/internal/mirror"
	"growbase/internal/model"
	"growbase/internal/store"
)

// NewReconcileCommand checks paid entitlements for missing royalty postings.
// The entitlement and royalty stores flush independently, so a crash between
// the two can leave a paid sale without its posting; the entitlement is
// authoritative and this command closes the gap.
func NewReconcileCommand(root *RootOptions) *cobra.Command {
	var repost bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report (and optionally repost) royalty postings missing after a crash",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.ConfigPath)
			if err != nil {
				return err
			}
			return runReconcile(cfg, repost)
		},
	}
	cmd.Flags().BoolVar(&repost, "repost", false, "post missing royalty entries using the listing's current price as net revenue")
	return cmd
}

func runReconcile(cfg config.Config, repost bool) error {
	mir, err := mirror.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("init mirror: %w", err)
	}
	defer mir.Close()

	ents, err := store.Open[*model.Entitlement](store.Config{Kind: "entitlement", Cap: cfg.Caps.Entitlement}, mir, nil)
	if err != nil {
		return err
	}
	roys, err := store.Open[*model.RoyaltyEntry](store.Config{Kind: "royalty", Cap: cfg.Caps.Royalty}, mir, nil)
	if err != nil {
		return err
	}

	led := ledger.New(catalog.Default(), ents, roys)
	report := led.Reconcile(repost)

	log.Printf("reconcile: checked=%d missing=%d reposted=%d", report.Checked, len(report.Missing), report.Reposted)
	for _, txn := range report.Missing {
		log.Printf("reconcile: transaction %s has no royalty posting", txn)
	}

	ents.Close()
	roys.Close()
	return nil
}
