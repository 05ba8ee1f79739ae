package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"driveshare/internal/repository"
	"driveshare/internal/storage"
)

// Janitor reconciles the blob store against the file record store: blobs
// whose key backs no record are orphans from uploads where the record
// insert failed, and are removed once older than the grace period.
type Janitor struct {
	files  repository.FileRepository
	blobs  storage.Service
	cfg    Config
	cron   *cron.Cron
	logger *logrus.Logger
}

type Config struct {
	// Schedule is a cron expression (robfig/cron syntax, e.g. "@hourly").
	Schedule string
	// GracePeriod protects blobs written by uploads still in flight.
	GracePeriod time.Duration
	Logger      *logrus.Logger
}

func New(files repository.FileRepository, blobs storage.Service, cfg Config) *Janitor {
	if cfg.Schedule == "" {
		cfg.Schedule = "@hourly"
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Janitor{
		files:  files,
		blobs:  blobs,
		cfg:    cfg,
		cron:   cron.New(),
		logger: cfg.Logger,
	}
}

func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if removed, err := j.Sweep(sweepCtx); err != nil {
			j.logger.WithError(err).Warn("orphan blob sweep failed")
		} else if removed > 0 {
			j.logger.Infof("orphan blob sweep removed %d blobs", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}
	j.cron.Start()
	j.logger.Infof("janitor started, schedule %s", j.cfg.Schedule)
	return nil
}

func (j *Janitor) Shutdown() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.logger.Info("janitor stopped")
}

// Sweep runs one reconciliation pass and returns the number of removed blobs.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	objects, err := j.blobs.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}

	keys, err := j.files.ListStoredKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored keys: %w", err)
	}
	known := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		known[key] = struct{}{}
	}

	cutoff := time.Now().Add(-j.cfg.GracePeriod)
	removed := 0
	for _, obj := range objects {
		if _, ok := known[obj.Key]; ok {
			continue
		}
		if obj.LastModified != nil && obj.LastModified.After(cutoff) {
			continue
		}
		if err := j.blobs.Delete(ctx, obj.Key); err != nil {
			j.logger.WithError(err).Warnf("remove orphan blob %s", obj.Key)
			continue
		}
		removed++
	}
	return removed, nil
}
