package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"audiencesync/internal/api"
	"audiencesync/internal/config"
	"audiencesync/internal/feed"
	"audiencesync/internal/listener"
	"audiencesync/internal/mailchimp"
	"audiencesync/internal/storage"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	store, err := storage.New(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	// Audience API client, verified up front so a bad key surfaces at
	// startup instead of on the first submission.
	opts := []mailchimp.Option{mailchimp.WithTimeout(cfg.MailchimpTimeout())}
	if cfg.Mailchimp.BaseURL != "" {
		opts = append(opts, mailchimp.WithBaseURL(cfg.Mailchimp.BaseURL))
	}
	client := mailchimp.New(cfg.Mailchimp.APIKey, opts...)
	account, err := client.AccountDetails(rootCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to authenticate with the audience API")
	}
	log.Info().Str("account", account.AccountName).Msg("audience API authenticated")

	// Processor
	proc := feed.NewProcessor(client, feed.WithMetadataTTL(cfg.MetadataTTL()))

	// Warm the feed cache
	feedCache := storage.NewFeedCache()
	feeds, err := store.LoadActiveFeeds(rootCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("initial feed load")
	}
	feedCache.Update(feeds)
	log.Info().Int("feeds", len(feeds)).Msg("feed cache warmed")

	// HTTP
	h := api.NewSubmissionHandler(feedCache, proc)
	r := api.Router(h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listener (LISTEN/NOTIFY) keeps feeds and metadata fresh
	go listener.ListenAndRefresh(rootCtx, store, feedCache, proc.FlushMetadata, cfg.Listener.Channel, cfg.Backoff())

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
