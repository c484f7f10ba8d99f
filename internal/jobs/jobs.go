package jobs

import (
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"carelink-server/internal/config"
	"carelink-server/internal/services"
)

// StartReminderScheduler runs the medicine reminder dispatcher on the
// configured cron spec, once per minute by default. The returned cron can
// be stopped on shutdown.
func StartReminderScheduler(db *gorm.DB, cfg *config.Config, clock services.Clock, notifier services.Notifier) (*cron.Cron, error) {
	dispatcher := services.NewReminderDispatcher(db, clock, notifier)

	c := cron.New()
	_, err := c.AddFunc(cfg.ReminderCronSpec, func() {
		if err := dispatcher.Tick(); err != nil {
			log.Println("Error dispatching medicine reminders:", err)
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Println("Medicine reminder scheduler started with spec:", cfg.ReminderCronSpec)
	return c, nil
}
