package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carelink-server/internal/models"
)

// ConsentAction is a patient's answer to a pending consent request
type ConsentAction string

const (
	ActionGrant ConsentAction = "grant"
	ActionDeny  ConsentAction = "deny"
)

// ConsentService owns the consent state machine:
//
//	pending -> granted -> revoked
//	pending -> denied
//
// denied and revoked are terminal for a consent instance; regaining access
// always goes through a fresh request.
type ConsentService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewConsentService creates a new ConsentService.
func NewConsentService(db *gorm.DB, clock Clock) *ConsentService {
	return &ConsentService{DB: db, Clock: clock}
}

// Request opens a pending consent from hospital to patient and notifies the
// patient. The patient's name and phone are stored as a snapshot of what
// the hospital claimed at request time. Fails with ErrConflict when a
// pending or granted consent already exists for the pair; the check and the
// insert run in one transaction under a row lock so two concurrent requests
// cannot both create a pending record.
func (s *ConsentService) Request(hospital *models.User, patient *models.User, snapshotName, snapshotPhone string) (*models.Consent, error) {
	consent := &models.Consent{
		PatientID:    patient.ID,
		HospitalID:   hospital.ID,
		PatientName:  snapshotName,
		PatientPhone: snapshotPhone,
		Status:       models.ConsentPending,
		RequestedAt:  s.Clock.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Consent
		err := lockForUpdate(tx).
			Where("patient_id = ? AND hospital_id = ? AND status IN ?",
				patient.ID, hospital.ID,
				[]models.ConsentStatus{models.ConsentPending, models.ConsentGranted}).
			First(&existing).Error
		if err == nil {
			if existing.Status == models.ConsentGranted {
				return fmt.Errorf("hospital already has access to this patient: %w", ErrConflict)
			}
			return fmt.Errorf("consent request already pending: %w", ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(consent).Error; err != nil {
			return err
		}

		return CreateNotification(tx, patient.ID, models.NotificationConsentRequest,
			"Info Access Request",
			fmt.Sprintf("%s is requesting access to your medical information", hospital.DisplayName()),
			consent.ID)
	})
	if err != nil {
		return nil, err
	}
	return consent, nil
}

// Respond records the patient's grant or deny on a pending request and
// notifies the requesting hospital. Looking up by (id, patient) means a
// consent belonging to someone else is indistinguishable from a missing one.
func (s *ConsentService) Respond(consentID string, patient *models.User, action ConsentAction) (*models.Consent, error) {
	if action != ActionGrant && action != ActionDeny {
		return nil, fmt.Errorf("action must be grant or deny: %w", ErrValidation)
	}

	var consent models.Consent
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).
			Where("id = ? AND patient_id = ?", consentID, patient.ID).
			First(&consent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("consent request not found: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}
		if consent.Status != models.ConsentPending {
			return fmt.Errorf("consent is %s, only pending requests can be answered: %w", consent.Status, ErrInvalidTransition)
		}

		now := s.Clock.Now()
		consent.RespondedAt = &now
		title := "Consent Granted"
		ntype := models.NotificationConsentGranted
		verb := "granted"
		if action == ActionDeny {
			consent.Status = models.ConsentDenied
			title = "Consent Denied"
			ntype = models.NotificationConsentDenied
			verb = "denied"
		} else {
			consent.Status = models.ConsentGranted
		}

		if err := tx.Save(&consent).Error; err != nil {
			return err
		}

		return CreateNotification(tx, consent.HospitalID, ntype, title,
			fmt.Sprintf("Patient %s has %s access request", patient.Name, verb),
			consent.ID)
	})
	if err != nil {
		return nil, err
	}
	return &consent, nil
}

// Revoke ends a granted consent and notifies the patient. Only the granted
// state can be revoked; anything else is ErrInvalidTransition.
func (s *ConsentService) Revoke(consentID string, hospital *models.User) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var consent models.Consent
		err := lockForUpdate(tx).
			Where("id = ? AND hospital_id = ?", consentID, hospital.ID).
			First(&consent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("consent not found: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}
		if consent.Status != models.ConsentGranted {
			return fmt.Errorf("consent is %s, only granted access can be revoked: %w", consent.Status, ErrInvalidTransition)
		}

		now := s.Clock.Now()
		consent.Status = models.ConsentRevoked
		consent.RevokedAt = &now
		if err := tx.Save(&consent).Error; err != nil {
			return err
		}

		return CreateNotification(tx, consent.PatientID, models.NotificationConsentRevoked,
			"Access Revoked",
			fmt.Sprintf("%s has revoked access to your medical information", hospital.DisplayName()),
			consent.ID)
	})
}

// ListForHospital returns every consent the hospital has requested, newest
// request first.
func (s *ConsentService) ListForHospital(hospitalID string) ([]models.Consent, error) {
	var consents []models.Consent
	err := s.DB.Where("hospital_id = ?", hospitalID).
		Order("requested_at desc").
		Find(&consents).Error
	return consents, err
}

// ListGrantedForHospital returns only the hospital's currently granted
// consents, newest request first.
func (s *ConsentService) ListGrantedForHospital(hospitalID string) ([]models.Consent, error) {
	var consents []models.Consent
	err := s.DB.Where("hospital_id = ? AND status = ?", hospitalID, models.ConsentGranted).
		Order("requested_at desc").
		Find(&consents).Error
	return consents, err
}
