package models

import (
	"time"
)

// Admission records a patient's physical stay at a hospital. An active
// admission grants the hospital record access on its own, independent of
// the consent workflow. PatientID stays empty until the admitted phone
// number belongs to a registered account.
type Admission struct {
	BaseModel
	PatientID     string     `gorm:"size:36;index" json:"patientId,omitempty"`
	HospitalID    string     `gorm:"size:36;index;not null" json:"hospitalId"`
	PatientName   string     `gorm:"size:100;not null" json:"patientName"`
	PatientPhone  string     `gorm:"size:20;index;not null" json:"patientPhone"`
	Notes         string     `gorm:"type:text" json:"notes"`
	IsActive      bool       `gorm:"default:true" json:"isActive"`
	AdmissionDate time.Time  `json:"admissionDate"`
	DischargeDate *time.Time `json:"dischargeDate,omitempty"`

	Hospital User `gorm:"foreignKey:HospitalID" json:"-"`
}
