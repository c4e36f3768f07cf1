package services

import (
	"time"

	"challenge-tracking-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartPublishScheduler promotes drafts whose publish_schedule has passed
// to published, once a minute. Returns the scheduler so the caller can
// shut it down.
func (s *ChallengeService) StartPublishScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(s.publishDueChallenges),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func (s *ChallengeService) publishDueChallenges() {
	now := time.Now()
	var challenges []models.Challenge
	err := s.DB.Where("status = ? AND is_deleted = ? AND publish_schedule IS NOT NULL AND publish_schedule <= ?",
		models.StatusDraft, false, now).Find(&challenges).Error
	if err != nil {
		serviceLog.WithError(err).Error("[Scheduler] querying due challenges")
		return
	}

	for _, c := range challenges {
		err := s.DB.Model(&models.Challenge{}).Where("id = ?", c.ID).Updates(map[string]any{
			"status":           models.StatusPublished,
			"published_at":     now,
			"publish_schedule": nil,
		}).Error
		if err != nil {
			serviceLog.WithError(err).WithField("id", c.ID).Error("[Scheduler] failed to publish challenge")
			continue
		}
		serviceLog.WithField("title", c.Title).Info("[Scheduler] auto-published challenge")
	}
}
