package models

import (
	"time"
)

// MedicineReminder is one timed dose slot derived from a prescription's
// medicine list. A medicine with three inferred slots produces three rows.
// LastSent records the most recent notification so the dispatcher sends at
// most once per reminder per calendar day.
type MedicineReminder struct {
	BaseModel
	PatientID      string `gorm:"size:36;index;not null" json:"patientId"`
	FamilyMemberID string `gorm:"size:36;index" json:"familyMemberId,omitempty"`
	PrescriptionID string `gorm:"size:36;index;not null" json:"prescriptionId"`

	MedicineName string `gorm:"size:150;not null" json:"medicineName"`
	Dosage       string `gorm:"size:100" json:"dosage"`
	ReminderTime string `gorm:"size:5;index;not null" json:"reminderTime"` // HH:MM

	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"` // exclusive
	IsActive  bool       `gorm:"default:true" json:"isActive"`
	Completed bool       `gorm:"default:false" json:"completed"`
	LastSent  *time.Time `json:"lastSent,omitempty"`

	Patient      User         `gorm:"foreignKey:PatientID" json:"-"`
	Prescription Prescription `gorm:"foreignKey:PrescriptionID" json:"-"`
}
