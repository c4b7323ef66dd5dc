package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"growbase/internal/catalog"
	"growbase/internal/config"
	"growbase/internal/feed"
	"growbase/internal/httpapi"
	"growbase/internal/intake"
	"growbase/internal/ledger"
	"growbase/internal/metrics"
	"growbase/internal/mirror"
	"growbase/internal/model"
	"growbase/internal/sop"
	"growbase/internal/store"
)

// NewServeCommand runs the HTTP server and, when configured, the Kafka
// telemetry consumer.
func NewServeCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the growbase backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.ConfigPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

// stores bundles every open store so shutdown can flush them in one place.
type stores struct {
	intakes *store.Store[*model.Intake]
	chats   *store.Store[*model.Chat]
	sops    *store.Store[*model.Sop]
	ents    *store.Store[*model.Entitlement]
	roys    *store.Store[*model.RoyaltyEntry]
}

func openStores(cfg config.Config, mir mirror.Mirror, mreg *metrics.Registry) (*stores, error) {
	var s stores
	var err error
	if s.intakes, err = store.Open[*model.Intake](store.Config{Kind: "intake", Cap: cfg.Caps.Intake}, mir, mreg); err != nil {
		return nil, err
	}
	if s.chats, err = store.Open[*model.Chat](store.Config{Kind: "chat", Cap: cfg.Caps.Chat}, mir, mreg); err != nil {
		return nil, err
	}
	if s.sops, err = store.Open[*model.Sop](store.Config{Kind: "sop", Cap: cfg.Caps.Sop}, mir, mreg); err != nil {
		return nil, err
	}
	if s.ents, err = store.Open[*model.Entitlement](store.Config{Kind: "entitlement", Cap: cfg.Caps.Entitlement}, mir, mreg); err != nil {
		return nil, err
	}
	if s.roys, err = store.Open[*model.RoyaltyEntry](store.Config{Kind: "royalty", Cap: cfg.Caps.Royalty}, mir, mreg); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *stores) closeAll() {
	s.intakes.Close()
	s.chats.Close()
	s.sops.Close()
	s.ents.Close()
	s.roys.Close()
}

func buildFeed(cfg config.Config) (feed.Writer, error) {
	var writers []feed.Writer
	sink := cfg.Kafka.FeedSink
	if sink == "file" || sink == "both" || sink == "" {
		fw, err := feed.NewFileWriter(cfg.FeedDir, "purchases.jsonl")
		if err != nil {
			return nil, fmt.Errorf("init feed file: %w", err)
		}
		writers = append(writers, fw)
	}
	if (sink == "kafka" || sink == "both") && cfg.Kafka.Bootstrap != "" {
		writers = append(writers, feed.NewKafkaWriter(cfg.Kafka.Bootstrap, cfg.Kafka.PurchaseTopic))
	}
	switch len(writers) {
	case 0:
		return nil, nil
	case 1:
		return writers[0], nil
	default:
		return feed.NewMultiWriter(writers...), nil
	}
}

func runServe(cfg config.Config) error {
	log.Printf("starting growbase backend=%s data=%s http=%s", cfg.Backend, cfg.DataDir, cfg.HTTPAddr)

	mreg := metrics.NewRegistry()
	mir, err := mirror.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("init mirror: %w", err)
	}
	defer mir.Close()

	st, err := openStores(cfg, mir, mreg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}

	cat := catalog.Default()
	fw, err := buildFeed(cfg)
	if err != nil {
		return err
	}
	led := ledger.New(cat, st.ents, st.roys).WithMetrics(mreg)
	if fw != nil {
		led = led.WithFeed(fw)
	}
	sopSvc := sop.New(st.sops)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Kafka.Bootstrap != "" && cfg.Kafka.IntakeTopic != "" {
		consumer, err := intake.NewConsumer(cfg.Kafka.Bootstrap, cfg.Kafka.GroupID, cfg.Kafka.IntakeTopic, st.intakes)
		if err != nil {
			return fmt.Errorf("init intake consumer: %w", err)
		}
		go consumer.WithMetrics(mreg).Run(ctx)
		log.Printf("consuming telemetry from %s", cfg.Kafka.IntakeTopic)
	}

	api := httpapi.New(st.intakes, st.chats, sopSvc, led, cat, mreg.Handler())
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		st.closeAll()
		return fmt.Errorf("http server: %w", err)
	}

	log.Printf("shutting down, flushing stores")
	st.closeAll()
	return nil
}
