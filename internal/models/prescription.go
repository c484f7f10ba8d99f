package models

import (
	"time"
)

// Prescription is issued by a hospital for either a real patient (matched by
// phone, linked to an account once one exists) or an emergency patient.
// Exactly one of the two associations is set; IsEmergencyPatient tags which.
type Prescription struct {
	BaseModel
	DoctorName   string `gorm:"size:100;not null" json:"doctorName"`
	HospitalName string `gorm:"size:150;not null" json:"hospitalName"`
	HospitalID   string `gorm:"size:36;index;not null" json:"hospitalId"`

	PatientName        string `gorm:"size:100" json:"patientName,omitempty"`
	PatientPhone       string `gorm:"size:30;index" json:"patientPhone,omitempty"`
	PatientID          string `gorm:"size:36;index" json:"patientId,omitempty"`
	FamilyMemberID     string `gorm:"size:36;index" json:"familyMemberId,omitempty"`
	EmergencyPatientID string `gorm:"size:36;index" json:"emergencyPatientId,omitempty"`
	IsEmergencyPatient bool   `gorm:"default:false" json:"isEmergencyPatient"`

	Date      time.Time  `json:"date"`
	Notes     string     `gorm:"type:text" json:"notes"`
	Medicines []Medicine `gorm:"foreignKey:PrescriptionID" json:"medicines"`

	Hospital User `gorm:"foreignKey:HospitalID" json:"-"`
}

// Medicine is one entry on a prescription. Timing is free text; the
// reminder generator infers concrete time slots from it.
type Medicine struct {
	BaseModel
	PrescriptionID string `gorm:"size:36;index;not null" json:"prescriptionId"`
	Name           string `gorm:"size:150;not null" json:"name"`
	Dosage         string `gorm:"size:100;not null" json:"dosage"`
	Timing         string `gorm:"size:100" json:"timing"`
	Duration       int    `gorm:"not null" json:"duration"` // days
}
