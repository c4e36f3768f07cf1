package workers

import (
	"context"
	"time"

	"challenge-tracking-system/models"
	"challenge-tracking-system/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var workerLog = logrus.StandardLogger()

// TrendingWorker periodically recomputes trending scores for published
// challenges. The recompute is idempotent, so a lost update between two
// passes self-heals on the next one.
type TrendingWorker struct {
	db         *gorm.DB
	challenges *services.ChallengeService
	interval   time.Duration
}

func NewTrendingWorker(db *gorm.DB, challenges *services.ChallengeService, interval time.Duration) *TrendingWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &TrendingWorker{db: db, challenges: challenges, interval: interval}
}

// Run blocks until the context is cancelled, refreshing on every tick.
func (w *TrendingWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	workerLog.WithField("interval", w.interval.String()).Info("[Trending] worker started")
	for {
		select {
		case <-ctx.Done():
			workerLog.Info("[Trending] worker stopped")
			return
		case <-ticker.C:
			w.refreshAll()
		}
	}
}

func (w *TrendingWorker) refreshAll() {
	var challenges []models.Challenge
	err := w.db.Where("status = ? AND is_deleted = ?", models.StatusPublished, false).
		Find(&challenges).Error
	if err != nil {
		workerLog.WithError(err).Error("[Trending] querying published challenges")
		return
	}

	updated := 0
	for i := range challenges {
		if _, err := w.challenges.UpdateTrendingScore(&challenges[i]); err != nil {
			workerLog.WithError(err).WithField("id", challenges[i].ID).
				Warn("[Trending] recompute failed")
			continue
		}
		updated++
	}
	workerLog.WithField("updated", updated).Debug("[Trending] refresh pass complete")
}
