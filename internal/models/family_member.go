package models

// FamilyMember is a dependent managed under a patient's account. Family
// members cannot log in themselves; prescriptions and reminders reference
// them through the owning patient.
type FamilyMember struct {
	BaseModel
	PatientID    string `gorm:"size:36;index;not null" json:"patientId"`
	Name         string `gorm:"size:100;not null" json:"name"`
	Age          int    `json:"age"`
	Gender       string `gorm:"size:10" json:"gender"`
	Relationship string `gorm:"size:50" json:"relationship"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
}
