// README: Entry point; loads config, wires stores and services, serves HTTP until signalled.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rideline/internal/config"
	httptransport "rideline/internal/http"
	"rideline/internal/infra"
	"rideline/internal/logging"
	"rideline/internal/maps"
	"rideline/internal/modules/offer"
	"rideline/internal/modules/payments"
	"rideline/internal/modules/presence"
	"rideline/internal/modules/quote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.Log.Level)
	if err := run(cfg, log); err != nil {
		log.Error("rideline-api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		return errors.New("RIDELINE_FIREBASE_PROJECT_ID is required")
	}
	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	verifier, err := fb.Verifier(ctx)
	if err != nil {
		return err
	}
	fs, err := fb.Firestore(ctx)
	if err != nil {
		return err
	}
	defer fs.Close()

	offerOpts := []offer.Option{offer.WithLogger(log.With("module", "offer"))}
	var rides offer.Repository
	switch cfg.Offer.Backend {
	case config.OfferBackendPostgres:
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := offer.NewPostgresStore(pool)
		rides = pg
		offerOpts = append(offerOpts, offer.WithEventLog(pg))
	default:
		rides = offer.NewFirestoreStore(fs, cfg.Offer.Collection)
	}
	if cfg.Firebase.FCMEnabled {
		msg, err := fb.Messaging(ctx)
		if err != nil {
			return err
		}
		offerOpts = append(offerOpts, offer.WithNotifier(offer.NewFCMNotifier(msg), cfg.Offer.NotifyTimeout))
	}
	offerSvc := offer.NewService(rides, offerOpts...)

	directions, err := maps.NewDirectionsClient(cfg.Maps.APIKey)
	if err != nil {
		return err
	}
	quoteEngine := quote.NewEngine(directions,
		quote.WithTimeout(cfg.Quote.Timeout),
		quote.WithLogger(log.With("module", "quote")),
	)

	presenceOpts := []presence.Option{
		presence.WithLogger(log.With("module", "presence")),
		presence.WithOfflineTimeout(cfg.Presence.OfflineTimeout),
	}
	if cfg.Redis.Addr != "" {
		rdb := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)
		defer rdb.Close()
		presenceOpts = append(presenceOpts, presence.WithIndex(presence.NewGeoIndex(rdb, cfg.Redis.GeoKey)))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		writer := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer writer.Close()
		presenceOpts = append(presenceOpts, presence.WithPublisher(presence.NewKafkaPublisher(writer)))
	}
	tracker := presence.NewTracker(
		presence.NewFirestoreStore(fs, cfg.Presence.DriversCollection, cfg.Presence.LocationsCollection, cfg.Presence.AccountField),
		presenceOpts...,
	)

	var paymentSvc *payments.Service
	if cfg.Stripe.SecretKey != "" {
		paymentSvc = payments.NewService(
			payments.NewStripeGateway(cfg.Stripe.SecretKey),
			cfg.Stripe.RefreshURL, cfg.Stripe.ReturnURL,
			log.With("module", "payments"),
		)
	} else {
		log.Warn("RIDELINE_STRIPE_SECRET_KEY not set; payment routes disabled")
	}

	router := httptransport.NewRouter(httptransport.ServerDeps{
		Log:         log,
		Verifier:    verifier,
		Offer:       offerSvc,
		Quote:       quoteEngine,
		Presence:    tracker,
		Payments:    paymentSvc,
		QuoteConfig: cfg.Quote,
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr, "offer_backend", cfg.Offer.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	tracker.Wait()
	return <-errCh
}
