package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"carelink-server/internal/models"
)

// defaultSlots is the morning/afternoon/night schedule used when a medicine
// carries no usable timing instruction.
var defaultSlots = []string{"09:00", "14:00", "21:00"}

// namedSlots maps the recognized timing vocabulary to concrete slots.
var namedSlots = map[string]string{
	"morning":   "09:00",
	"afternoon": "14:00",
	"evening":   "20:00",
	"night":     "21:00",
	"breakfast": "08:00",
	"lunch":     "13:00",
	"dinner":    "20:00",
}

var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(am|pm)?$`)

// ParseTiming infers reminder slots from a medicine's free-text timing.
// Blank text and anything unrecognized fall back to the three-slot default;
// a clock time (with optional am/pm) or a vocabulary word yields one slot.
// Never fails: a doctor's unparseable note still produces a safe schedule.
func ParseTiming(timing string) []string {
	trimmed := strings.TrimSpace(timing)
	if trimmed == "" {
		return defaultSlots
	}

	if m := clockPattern.FindStringSubmatch(trimmed); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		switch strings.ToLower(m[3]) {
		case "pm":
			if hours != 12 {
				hours += 12
			}
		case "am":
			if hours == 12 {
				hours = 0
			}
		}
		// Out-of-range clock values are treated as unrecognized text
		if hours <= 23 && minutes <= 59 {
			return []string{fmt.Sprintf("%02d:%02d", hours, minutes)}
		}
		return defaultSlots
	}

	if slot, ok := namedSlots[strings.ToLower(trimmed)]; ok {
		return []string{slot}
	}

	return defaultSlots
}

// GenerateReminders expands a prescription's medicine list into one
// reminder per (medicine, slot) pair. Each reminder is valid from the
// prescription date for the medicine's duration in days, end exclusive.
func GenerateReminders(p *models.Prescription) ([]models.MedicineReminder, error) {
	var reminders []models.MedicineReminder
	start := truncateToDay(p.Date)

	for _, medicine := range p.Medicines {
		if medicine.Duration <= 0 {
			return nil, fmt.Errorf("medicine %q: duration must be a positive number of days: %w", medicine.Name, ErrValidation)
		}
		end := start.AddDate(0, 0, medicine.Duration)

		for _, slot := range ParseTiming(medicine.Timing) {
			reminders = append(reminders, models.MedicineReminder{
				PatientID:      p.PatientID,
				FamilyMemberID: p.FamilyMemberID,
				PrescriptionID: p.ID,
				MedicineName:   medicine.Name,
				Dosage:         medicine.Dosage,
				ReminderTime:   slot,
				StartDate:      start,
				EndDate:        end,
				IsActive:       true,
			})
		}
	}
	return reminders, nil
}

// regenerateReminders replaces every reminder keyed by the prescription with
// a freshly generated set. Wholesale replacement, not a diff: manual
// completed/inactive state on slots from the previous medicine list is lost.
// Prescriptions without a linked patient account produce no reminders.
func regenerateReminders(tx *gorm.DB, p *models.Prescription) error {
	if err := tx.Where("prescription_id = ?", p.ID).Delete(&models.MedicineReminder{}).Error; err != nil {
		return err
	}
	if p.PatientID == "" || p.IsEmergencyPatient {
		return nil
	}

	reminders, err := GenerateReminders(p)
	if err != nil {
		return err
	}
	if len(reminders) == 0 {
		return nil
	}
	return tx.Create(&reminders).Error
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ReminderService exposes a patient's own reminders. Reminders belong to
// the patient (or a family member under the account) and the originating
// prescription; no other actor reads or mutates them.
type ReminderService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewReminderService creates a new ReminderService.
func NewReminderService(db *gorm.DB, clock Clock) *ReminderService {
	return &ReminderService{DB: db, Clock: clock}
}

// RegenerateForPrescription rebuilds the reminder set for a prescription.
func (s *ReminderService) RegenerateForPrescription(p *models.Prescription) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return regenerateReminders(tx, p)
	})
}

// Complete marks a reminder done. Completion is terminal: the reminder also
// deactivates and never fires again, whatever its validity window says.
func (s *ReminderService) Complete(patientID, reminderID string) error {
	reminder, err := s.find(patientID, reminderID)
	if err != nil {
		return err
	}

	reminder.Completed = true
	reminder.IsActive = false
	return s.DB.Save(reminder).Error
}

// Toggle flips a reminder between active and paused. Completed reminders
// cannot be resumed.
func (s *ReminderService) Toggle(patientID, reminderID string) (*models.MedicineReminder, error) {
	reminder, err := s.find(patientID, reminderID)
	if err != nil {
		return nil, err
	}
	if reminder.Completed {
		return nil, fmt.Errorf("reminder already completed: %w", ErrInvalidTransition)
	}

	reminder.IsActive = !reminder.IsActive
	if err := s.DB.Save(reminder).Error; err != nil {
		return nil, err
	}
	return reminder, nil
}

// ListForPatient returns reminders for the account or one of its family
// members, ordered by time slot.
func (s *ReminderService) ListForPatient(patientID, familyMemberID string) ([]models.MedicineReminder, error) {
	query := s.DB.Where("patient_id = ?", patientID)
	if familyMemberID != "" {
		query = query.Where("family_member_id = ?", familyMemberID)
	}

	var reminders []models.MedicineReminder
	err := query.Order("reminder_time asc").Find(&reminders).Error
	return reminders, err
}

// Upcoming returns active, uncompleted reminders whose window has not yet
// closed, for dashboard display.
func (s *ReminderService) Upcoming(patientID, familyMemberID string, limit int) ([]models.MedicineReminder, error) {
	today := truncateToDay(s.Clock.Now())
	query := s.DB.Where("patient_id = ? AND is_active = ? AND completed = ? AND end_date > ?",
		patientID, true, false, today)
	if familyMemberID != "" {
		query = query.Where("family_member_id = ?", familyMemberID)
	} else {
		query = query.Where("family_member_id = ?", "")
	}

	var reminders []models.MedicineReminder
	err := query.Order("reminder_time asc").Limit(limit).Find(&reminders).Error
	return reminders, err
}

func (s *ReminderService) find(patientID, reminderID string) (*models.MedicineReminder, error) {
	var reminder models.MedicineReminder
	err := s.DB.Where("id = ? AND patient_id = ?", reminderID, patientID).First(&reminder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reminder not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}
