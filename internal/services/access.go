package services

import (
	"errors"

	"gorm.io/gorm"

	"carelink-server/internal/models"
)

// AccessLevel says how a hospital came to hold access to a patient's records
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessViaAdmission
	AccessViaConsent
)

// AccessGrant is the resolver's verdict. Consent is populated when access
// came through the consent path, so callers can expose the consent id for
// revocation.
type AccessGrant struct {
	Level   AccessLevel
	Consent *models.Consent
}

// Allowed reports whether any access path held.
func (g AccessGrant) Allowed() bool { return g.Level != AccessNone }

// AccessResolver decides whether a hospital may read a patient's records:
// an active admission grants access implicitly (physical custody), failing
// that a granted consent does. The verdict is computed fresh on every call
// because either condition can flip at any moment (discharge, revoke).
type AccessResolver struct {
	DB *gorm.DB
}

// NewAccessResolver creates a new AccessResolver.
func NewAccessResolver(db *gorm.DB) *AccessResolver {
	return &AccessResolver{DB: db}
}

// Resolve evaluates the admission-or-consent check for a (hospital, patient)
// pair.
func (r *AccessResolver) Resolve(hospitalID, patientID string) (AccessGrant, error) {
	var admission models.Admission
	err := r.DB.Where("patient_id = ? AND hospital_id = ? AND is_active = ?", patientID, hospitalID, true).
		First(&admission).Error
	if err == nil {
		return AccessGrant{Level: AccessViaAdmission}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AccessGrant{}, err
	}

	var consent models.Consent
	err = r.DB.Where("patient_id = ? AND hospital_id = ? AND status = ?", patientID, hospitalID, models.ConsentGranted).
		First(&consent).Error
	if err == nil {
		return AccessGrant{Level: AccessViaConsent, Consent: &consent}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AccessGrant{}, err
	}

	return AccessGrant{Level: AccessNone}, nil
}
