package models

import (
	"time"
)

// ReportOrigin tags which kind of actor uploaded a report
type ReportOrigin string

const (
	ReportFromHospital ReportOrigin = "hospital"
	ReportFromLab      ReportOrigin = "lab"
)

// MedicalReport is a diagnostic document uploaded by a lab for a real
// patient, or by a hospital for one of its emergency patients. Reports are
// immutable after creation. The file itself is stored as binary data.
type MedicalReport struct {
	BaseModel
	PatientName        string `gorm:"size:100" json:"patientName,omitempty"`
	PatientPhone       string `gorm:"size:30;index" json:"patientPhone,omitempty"`
	PatientID          string `gorm:"size:36;index" json:"patientId,omitempty"`
	FamilyMemberID     string `gorm:"size:36;index" json:"familyMemberId,omitempty"`
	EmergencyPatientID string `gorm:"size:36;index" json:"emergencyPatientId,omitempty"`
	IsEmergencyPatient bool   `gorm:"default:false" json:"isEmergencyPatient"`

	HospitalID   string       `gorm:"size:36;index" json:"hospitalId,omitempty"`
	HospitalName string       `gorm:"size:150" json:"hospitalName,omitempty"`
	LabID        string       `gorm:"size:36;index" json:"labId,omitempty"`
	LabName      string       `gorm:"size:150" json:"labName,omitempty"`
	UploadedBy   ReportOrigin `gorm:"size:20;not null" json:"uploadedBy"`

	ReportType  string    `gorm:"size:100;not null" json:"reportType"`
	ReportName  string    `gorm:"size:150;not null" json:"reportName"`
	Description string    `gorm:"type:text" json:"description"`
	Date        time.Time `json:"date"`

	FileName string `gorm:"size:255;not null" json:"fileName"`
	FileType string `gorm:"size:100" json:"fileType"`
	FileData []byte `gorm:"type:longblob" json:"-"`
}
