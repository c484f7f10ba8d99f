package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carelink-server/internal/models"
)

// AdmissionService tracks physical stays of identified patients, admitted
// by phone number. An active admission is one of the two access paths the
// resolver honors.
type AdmissionService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewAdmissionService creates a new AdmissionService.
func NewAdmissionService(db *gorm.DB, clock Clock) *AdmissionService {
	return &AdmissionService{DB: db, Clock: clock}
}

// Admit opens a stay for the patient with the given phone. The patient link
// stays empty when no account has registered that phone yet. Fails with
// ErrConflict when the patient is already admitted here.
func (s *AdmissionService) Admit(hospitalID, patientPhone, patientName, notes string) (*models.Admission, error) {
	if patientPhone == "" || patientName == "" {
		return nil, fmt.Errorf("patient phone and name are required: %w", ErrValidation)
	}

	admission := &models.Admission{
		HospitalID:    hospitalID,
		PatientName:   patientName,
		PatientPhone:  patientPhone,
		Notes:         notes,
		IsActive:      true,
		AdmissionDate: s.Clock.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Admission
		err := lockForUpdate(tx).
			Where("patient_phone = ? AND hospital_id = ? AND is_active = ?", patientPhone, hospitalID, true).
			First(&existing).Error
		if err == nil {
			return fmt.Errorf("patient is already admitted: %w", ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var patient models.User
		err = tx.Where("phone = ? AND role = ?", patientPhone, models.RolePatient).First(&patient).Error
		if err == nil {
			admission.PatientID = patient.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(admission).Error
	})
	if err != nil {
		return nil, err
	}
	return admission, nil
}

// Discharge ends an active stay. Terminal: re-admission creates a new row.
func (s *AdmissionService) Discharge(hospitalID, id string) error {
	var admission models.Admission
	err := s.DB.Where("id = ? AND hospital_id = ?", id, hospitalID).First(&admission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("admission not found: %w", ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !admission.IsActive {
		return fmt.Errorf("patient already discharged: %w", ErrInvalidTransition)
	}

	now := s.Clock.Now()
	admission.IsActive = false
	admission.DischargeDate = &now
	return s.DB.Save(&admission).Error
}

// List returns the hospital's admissions, newest first.
func (s *AdmissionService) List(hospitalID string, activeOnly bool) ([]models.Admission, error) {
	query := s.DB.Where("hospital_id = ?", hospitalID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var admissions []models.Admission
	err := query.Order("admission_date desc").Find(&admissions).Error
	return admissions, err
}
