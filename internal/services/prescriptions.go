package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"carelink-server/internal/models"
)

type refKind int

const (
	refReal refKind = iota + 1
	refEmergency
)

// PatientRef says who a prescription (or report) is for: a real patient
// identified by phone, or an emergency patient identified by bed. The two
// constructors are the only way to build one, so exactly one association is
// ever set.
type PatientRef struct {
	kind           refKind
	name           string
	phone          string
	patientID      string
	familyMemberID string
	emergency      *models.EmergencyPatient
}

// RealPatientRef targets a patient by phone and name. The account link is
// set when the phone already belongs to a registered patient; familyMemberID
// may scope the record to a dependent.
func RealPatientRef(name, phone string, patient *models.User, familyMemberID string) PatientRef {
	ref := PatientRef{kind: refReal, name: name, phone: phone, familyMemberID: familyMemberID}
	if patient != nil {
		ref.patientID = patient.ID
	}
	return ref
}

// EmergencyPatientRef targets a temporary identity. The EMG reference token
// substitutes for a phone number in shared fields.
func EmergencyPatientRef(patient *models.EmergencyPatient) PatientRef {
	return PatientRef{kind: refEmergency, emergency: patient}
}

func (r PatientRef) validate() error {
	switch r.kind {
	case refReal:
		if r.name == "" || r.phone == "" {
			return fmt.Errorf("patient phone and name are required for regular patients: %w", ErrValidation)
		}
	case refEmergency:
		if r.emergency == nil {
			return fmt.Errorf("emergency patient is required: %w", ErrValidation)
		}
	default:
		return fmt.Errorf("prescription must target a patient: %w", ErrValidation)
	}
	return nil
}

func (r PatientRef) apply(p *models.Prescription) {
	if r.kind == refEmergency {
		p.PatientName = r.emergency.DisplayName()
		p.PatientPhone = r.emergency.ReferencePhone()
		p.EmergencyPatientID = r.emergency.ID
		p.IsEmergencyPatient = true
		return
	}
	p.PatientName = r.name
	p.PatientPhone = r.phone
	p.PatientID = r.patientID
	p.FamilyMemberID = r.familyMemberID
}

// PrescriptionService creates and edits prescriptions and keeps the derived
// reminder rows in sync with the medicine list.
type PrescriptionService struct {
	DB    *gorm.DB
	Clock Clock
}

// NewPrescriptionService creates a new PrescriptionService.
func NewPrescriptionService(db *gorm.DB, clock Clock) *PrescriptionService {
	return &PrescriptionService{DB: db, Clock: clock}
}

// Create issues a prescription from the hospital to the referenced patient.
// For a linked real patient the medicine list is expanded into reminders and
// the patient is notified; emergency and unregistered patients get neither.
func (s *PrescriptionService) Create(hospital *models.User, ref PatientRef, medicines []models.Medicine, notes string) (*models.Prescription, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if len(medicines) == 0 {
		return nil, fmt.Errorf("at least one medicine is required: %w", ErrValidation)
	}

	prescription := &models.Prescription{
		DoctorName:   hospital.Name,
		HospitalName: hospital.DisplayName(),
		HospitalID:   hospital.ID,
		Date:         s.Clock.Now(),
		Notes:        notes,
	}
	ref.apply(prescription)
	prescription.Medicines = medicines

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(prescription).Error; err != nil {
			return err
		}
		if err := regenerateReminders(tx, prescription); err != nil {
			return err
		}
		if prescription.PatientID != "" && !prescription.IsEmergencyPatient {
			return CreateNotification(tx, prescription.PatientID, models.NotificationPrescription,
				"New Prescription",
				fmt.Sprintf("New prescription from %s", hospital.DisplayName()),
				prescription.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prescription, nil
}

// Update replaces the prescription's medicine list and notes, then rebuilds
// its reminders wholesale. Only the issuing hospital can edit.
func (s *PrescriptionService) Update(hospital *models.User, prescriptionID string, medicines []models.Medicine, notes string) (*models.Prescription, error) {
	if len(medicines) == 0 {
		return nil, fmt.Errorf("at least one medicine is required: %w", ErrValidation)
	}

	var prescription models.Prescription
	err := s.DB.Where("id = ? AND hospital_id = ?", prescriptionID, hospital.ID).First(&prescription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("prescription not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prescription_id = ?", prescription.ID).Delete(&models.Medicine{}).Error; err != nil {
			return err
		}
		for i := range medicines {
			medicines[i].PrescriptionID = prescription.ID
		}
		if err := tx.Create(&medicines).Error; err != nil {
			return err
		}

		prescription.Notes = notes
		if err := tx.Save(&prescription).Error; err != nil {
			return err
		}

		prescription.Medicines = medicines
		return regenerateReminders(tx, &prescription)
	})
	if err != nil {
		return nil, err
	}
	return &prescription, nil
}
