package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"carelink-server/internal/models"
)

// EmergencyService admits and discharges temporary patient identities that
// exist only as a bed label plus a generated token. Bed occupancy is the
// uniqueness rule: one active identity per (hospital, bed) at a time.
type EmergencyService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewEmergencyService creates a new EmergencyService.
func NewEmergencyService(db *gorm.DB, clock Clock) *EmergencyService {
	return &EmergencyService{DB: db, Clock: clock}
}

// Admit allocates a temporary identity for the given bed. Fails with
// ErrConflict while a previous occupant of the bed is still active; the
// occupancy check and the insert share a transaction with a row lock.
func (s *EmergencyService) Admit(hospitalID, bedNumber, notes string) (*models.EmergencyPatient, error) {
	bed := strings.TrimSpace(bedNumber)
	if bed == "" {
		return nil, fmt.Errorf("bed number is required: %w", ErrValidation)
	}

	now := s.Clock.Now()
	patient := &models.EmergencyPatient{
		TemporaryID:   models.GenerateTemporaryID(hospitalID, bed, now),
		BedNumber:     bed,
		HospitalID:    hospitalID,
		Notes:         notes,
		IsActive:      true,
		AdmissionDate: now,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.EmergencyPatient
		err := lockForUpdate(tx).
			Where("bed_number = ? AND hospital_id = ? AND is_active = ?", bed, hospitalID, true).
			First(&existing).Error
		if err == nil {
			return fmt.Errorf("bed %s is already occupied: %w", bed, ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(patient).Error
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// Discharge ends an active emergency admission. Discharge is terminal; the
// bed becomes free but this identity never reactivates.
func (s *EmergencyService) Discharge(hospitalID, id string) error {
	var patient models.EmergencyPatient
	err := s.DB.Where("id = ? AND hospital_id = ?", id, hospitalID).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("emergency patient not found: %w", ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !patient.IsActive {
		return fmt.Errorf("emergency patient already discharged: %w", ErrInvalidTransition)
	}

	now := s.Clock.Now()
	patient.IsActive = false
	patient.DischargeDate = &now
	return s.DB.Save(&patient).Error
}

// Get fetches one emergency patient scoped to the hospital that admitted it.
func (s *EmergencyService) Get(hospitalID, id string) (*models.EmergencyPatient, error) {
	var patient models.EmergencyPatient
	err := s.DB.Where("id = ? AND hospital_id = ?", id, hospitalID).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("emergency patient not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// List returns the hospital's emergency patients, newest admission first.
func (s *EmergencyService) List(hospitalID string, activeOnly bool) ([]models.EmergencyPatient, error) {
	query := s.DB.Where("hospital_id = ?", hospitalID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var patients []models.EmergencyPatient
	err := query.Order("admission_date desc").Find(&patients).Error
	return patients, err
}
