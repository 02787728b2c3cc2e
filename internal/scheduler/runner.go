package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/analysis"
	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
	"github.com/tickerwatch/ingest-service/internal/watermark"
)

// Storage is the slice of the database the runner writes fetched records to.
type Storage interface {
	StoreNewsItems(ctx context.Context, entries []models.NewsEntry) (int, error)
	StorePriceData(ctx context.Context, ticks []models.PriceTick) (int, error)
	StoreDiscussions(ctx context.Context, discussions []models.SocialDiscussion) (int, error)
}

// Publisher announces successful ingests to downstream consumers. Publish
// failures never fail a cycle.
type Publisher interface {
	PublishNewsIngested(ctx context.Context, providerName string, count int) error
	PublishPricesIngested(ctx context.Context, providerName string, count int) error
	PublishSocialIngested(ctx context.Context, providerName string, count int) error
}

// Locker serializes cycles per provider across instances.
type Locker interface {
	Acquire(ctx context.Context, providerName, token string) (bool, error)
	Release(ctx context.Context, providerName, token string) error
}

// Runner drives the ingestion loop: every interval it runs one cycle per
// registered source, each under its provider's distributed lock. Sources are
// fault-isolated from each other; a failing source only loses its own cycle.
type Runner struct {
	sources    []provider.DataSource
	engine     *watermark.Engine
	storage    Storage
	producer   Publisher
	lock       Locker
	classifier analysis.Classifier
	interval   time.Duration
	log        *logger.Logger
	instance   string
}

// NewRunner builds the ingestion runner. The instance string identifies this
// process as a lock holder; it must differ between replicas. A nil classifier
// leaves every news entry with the verdict the provider assigned.
func NewRunner(sources []provider.DataSource, engine *watermark.Engine, storage Storage, producer Publisher, lock Locker, classifier analysis.Classifier, interval time.Duration, instance string, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		sources:    sources,
		engine:     engine,
		storage:    storage,
		producer:   producer,
		lock:       lock,
		classifier: classifier,
		interval:   interval,
		log:        log,
		instance:   instance,
	}
}

// Run executes cycles until the context is cancelled. The first cycle starts
// immediately.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle runs one fetch-store-commit pass over every registered source.
func (r *Runner) RunCycle(ctx context.Context) {
	for _, src := range r.sources {
		if ctx.Err() != nil {
			return
		}
		if err := r.runSource(ctx, src); err != nil {
			if provider.IsContractError(err) {
				r.log.Error("source hit an API contract break",
					logger.StringField("source", src.Name()),
					logger.ErrorField(err))
				continue
			}
			r.log.Warn("source cycle failed",
				logger.StringField("source", src.Name()),
				logger.ErrorField(err))
		}
	}
}

// runSource executes one source's cycle under its provider lock. The
// watermark only commits after every storage write succeeded, so a failed
// write leaves the cursor behind and the records are refetched next cycle.
func (r *Runner) runSource(ctx context.Context, src provider.DataSource) error {
	providerName := string(src.Spec().Provider)
	token := r.instance + "/" + src.Name()

	acquired, err := r.lock.Acquire(ctx, providerName, token)
	if err != nil {
		return err
	}
	if !acquired {
		r.log.Debug("provider cycle already running elsewhere",
			logger.StringField("provider", providerName))
		return nil
	}
	defer func() {
		if err := r.lock.Release(ctx, providerName, token); err != nil {
			r.log.Warn("failed to release provider lock",
				logger.StringField("provider", providerName),
				logger.ErrorField(err))
		}
	}()

	cursor, err := r.engine.BuildPlan(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to build fetch plan: %w", err)
	}

	result, err := src.FetchIncremental(ctx, cursor)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	// An ID-cursor fetch can see new IDs while every record gets skipped as
	// malformed; the cursor must still advance or the window refetches forever.
	if result.Count() == 0 && result.LastFetchedMaxID == nil {
		r.log.Debug("nothing new", logger.StringField("source", src.Name()))
		return nil
	}

	if err := r.store(ctx, src, result); err != nil {
		return fmt.Errorf("storage failed, watermark not advanced: %w", err)
	}

	if err := r.engine.CommitUpdates(ctx, src, result); err != nil {
		return fmt.Errorf("failed to commit watermarks: %w", err)
	}

	r.log.Info("cycle complete",
		logger.StringField("source", src.Name()),
		logger.IntField("fetched", result.Count()))
	return nil
}

func (r *Runner) store(ctx context.Context, src provider.DataSource, result provider.FetchResult) error {
	providerName := string(src.Spec().Provider)

	if len(result.News) > 0 {
		r.classifyNews(ctx, result.News)
		stored, err := r.storage.StoreNewsItems(ctx, result.News)
		if err != nil {
			return err
		}
		r.publish(ctx, func() error { return r.producer.PublishNewsIngested(ctx, providerName, stored) })
	}

	if len(result.Prices) > 0 {
		stored, err := r.storage.StorePriceData(ctx, result.Prices)
		if err != nil {
			return err
		}
		r.publish(ctx, func() error { return r.producer.PublishPricesIngested(ctx, providerName, stored) })
	}

	if len(result.Discussions) > 0 {
		stored, err := r.storage.StoreDiscussions(ctx, result.Discussions)
		if err != nil {
			return err
		}
		r.publish(ctx, func() error { return r.producer.PublishSocialIngested(ctx, providerName, stored) })
	}

	return nil
}

// classifyNews applies the classifier's verdict to each entry before storage.
// A classifier failure leaves that entry unclassified rather than losing it.
func (r *Runner) classifyNews(ctx context.Context, entries []models.NewsEntry) {
	if r.classifier == nil {
		return
	}
	for i := range entries {
		verdict, err := r.classifier.Classify(ctx, entries[i])
		if err != nil {
			r.log.Warn("news classification failed",
				logger.StringField("url", entries[i].Article.URL),
				logger.ErrorField(err))
			continue
		}
		entries[i].Importance = verdict
	}
}

func (r *Runner) publish(ctx context.Context, fn func() error) {
	if r.producer == nil {
		return
	}
	if err := fn(); err != nil {
		r.log.Warn("failed to publish ingest event", logger.ErrorField(err))
	}
}
