package models

import (
	"time"
)

// ConsentStatus represents the state of a consent request
type ConsentStatus string

const (
	ConsentPending ConsentStatus = "pending"
	ConsentGranted ConsentStatus = "granted"
	ConsentDenied  ConsentStatus = "denied"
	ConsentRevoked ConsentStatus = "revoked"
)

// Consent is a hospital's request for access to a patient's records and the
// patient's answer to it. PatientName and PatientPhone are snapshots of what
// the hospital claimed about the patient at request time, kept for audit
// rather than joined live.
type Consent struct {
	BaseModel
	PatientID    string        `gorm:"size:36;index;not null" json:"patientId"`
	HospitalID   string        `gorm:"size:36;index;not null" json:"hospitalId"`
	PatientName  string        `gorm:"size:100" json:"patientName"`
	PatientPhone string        `gorm:"size:20" json:"patientPhone"`
	Status       ConsentStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	RequestedAt  time.Time     `json:"requestedAt"`
	RespondedAt  *time.Time    `json:"respondedAt,omitempty"`
	RevokedAt    *time.Time    `json:"revokedAt,omitempty"`

	Patient  User `gorm:"foreignKey:PatientID" json:"-"`
	Hospital User `gorm:"foreignKey:HospitalID" json:"-"`
}
