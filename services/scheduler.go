// services/scheduler.go
package services

import (
	"log"
	"time"

	"treasure-hunt-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartPublishScheduler flips scheduled hunts to published once their
// publish time has passed. Runs every minute for the life of the process.
func (s *HuntService) StartPublishScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var hunts []models.TreasureHunt
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at <= ?", models.HuntStatusScheduled, now).
				Find(&hunts).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, h := range hunts {
				h.Status = models.HuntStatusPublished
				h.PublishAt = nil
				if err := s.DB.Save(&h).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish hunt %s: %v", h.ID, err)
				} else {
					log.Printf("✅ Auto-published hunt: %s", h.Name)
				}
			}
		}),
	)
}
