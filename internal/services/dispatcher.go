package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"carelink-server/internal/models"
)

// ReminderDispatcher fires due medicine reminders. It is driven once per
// minute by the cron job in internal/jobs; each Tick finds reminders whose
// slot matches the current minute and sends at most one notification per
// reminder per calendar day. There is no catch-up: a tick missed while the
// process was down silently skips that day's dose for that slot.
type ReminderDispatcher struct {
	DB       *gorm.DB
	Clock    Clock
	Notifier Notifier
}

// NewReminderDispatcher creates a new ReminderDispatcher.
func NewReminderDispatcher(db *gorm.DB, clock Clock, notifier Notifier) *ReminderDispatcher {
	return &ReminderDispatcher{DB: db, Clock: clock, Notifier: notifier}
}

// Tick runs one dispatch pass. A failure to notify or persist one reminder
// is logged and never blocks the remaining due reminders in the same pass.
func (d *ReminderDispatcher) Tick() error {
	now := d.Clock.Now()
	currentTime := now.Format("15:04")
	today := truncateToDay(now)

	var due []models.MedicineReminder
	err := d.DB.Preload("Patient").
		Where("is_active = ? AND completed = ? AND reminder_time = ? AND start_date <= ? AND end_date > ?",
			true, false, currentTime, today, today).
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("query due reminders: %w", err)
	}

	for i := range due {
		reminder := &due[i]
		if reminder.LastSent != nil && truncateToDay(*reminder.LastSent).Equal(today) {
			continue // already notified today
		}
		if reminder.Patient.Phone == "" {
			continue
		}

		message := fmt.Sprintf("Medicine Reminder: Take %s (%s) now (%s)",
			reminder.MedicineName, reminder.Dosage, reminder.ReminderTime)
		if err := d.Notifier.Send(reminder.Patient.Phone, message); err != nil {
			log.Printf("reminder %s: notify failed: %v", reminder.ID, err)
			continue
		}

		if err := d.DB.Model(reminder).Update("last_sent", now).Error; err != nil {
			log.Printf("reminder %s: recording last sent failed: %v", reminder.ID, err)
		}
	}
	return nil
}
