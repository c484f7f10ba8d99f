package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EmergencyPatient is a temporary identity admitted against a bed label
// only, with no personal data. The generated TemporaryID stands in for the
// patient everywhere a real identity would appear.
type EmergencyPatient struct {
	BaseModel
	TemporaryID   string     `gorm:"size:20;uniqueIndex;not null" json:"temporaryId"`
	BedNumber     string     `gorm:"size:50;not null" json:"bedNumber"`
	HospitalID    string     `gorm:"size:36;index;not null" json:"hospitalId"`
	Notes         string     `gorm:"type:text" json:"notes"`
	IsActive      bool       `gorm:"default:true" json:"isActive"`
	AdmissionDate time.Time  `json:"admissionDate"`
	DischargeDate *time.Time `json:"dischargeDate,omitempty"`

	Hospital User `gorm:"foreignKey:HospitalID" json:"-"`
}

// GenerateTemporaryID derives a short display token from the hospital, bed
// and admission instant. The token carries no personal data; uniqueness is
// guaranteed by the active-bed check at admission time, not by the token.
func GenerateTemporaryID(hospitalID, bedNumber string, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", hospitalID, bedNumber, at.UnixNano())))
	return strings.ToUpper(hex.EncodeToString(sum[:5]))
}

// ReferencePhone returns the value stored in patient-phone fields of
// prescriptions and reports for this identity. The EMG prefix keeps it
// visually distinct from a real phone number.
func (e *EmergencyPatient) ReferencePhone() string {
	return "EMG-" + e.TemporaryID
}

// DisplayName labels the identity in shared patient-name fields.
func (e *EmergencyPatient) DisplayName() string {
	return "Emergency Patient - Bed " + e.BedNumber
}
