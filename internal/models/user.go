package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RolePatient  Role = "patient"
	RoleHospital Role = "hospital"
	RoleLab      Role = "lab"
)

// User represents an account in the system. Patients register with a phone
// number (their natural key, also used to link records created before
// registration); hospitals and labs register with an email address.
type User struct {
	BaseModel
	Phone        string `gorm:"size:20;index" json:"phone,omitempty"`
	Email        string `gorm:"size:255;index" json:"email,omitempty"`
	Password     string `gorm:"size:255;not null" json:"-"`
	Name         string `gorm:"size:100;not null" json:"name"`
	HospitalName string `gorm:"size:150" json:"hospitalName,omitempty"`
	Role         Role   `gorm:"size:20;not null" json:"role"`
	IsVerified   bool   `gorm:"default:false" json:"isVerified"`

	// One-time code for phone verification and password reset
	OTP       string     `gorm:"size:6" json:"-"`
	OTPExpiry *time.Time `json:"-"`

	// Relations (not always preloaded)
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	FamilyMembers []FamilyMember `gorm:"foreignKey:PatientID" json:"-"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name"`
	HospitalName string    `json:"hospitalName,omitempty"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// DisplayName returns the name shown to patients in notifications. For
// hospital accounts the facility name takes precedence over the admin's name.
func (u *User) DisplayName() string {
	if u.HospitalName != "" {
		return u.HospitalName
	}
	return u.Name
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:           u.ID,
		Phone:        u.Phone,
		Email:        u.Email,
		Name:         u.Name,
		HospitalName: u.HospitalName,
		Role:         u.Role,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
