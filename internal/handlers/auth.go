package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carelink-server/internal/config"
	"carelink-server/internal/models"
	"carelink-server/internal/services"
	"carelink-server/internal/utils"
)

// AuthHandler handles signup, login and token management for all three
// actor roles. Patients sign up by phone and verify with a one-time code;
// hospitals and labs sign up by email and are verified immediately.
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Notifier services.Notifier
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, notifier services.Notifier) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Notifier: notifier}
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// PatientSignupRequest represents the request body for patient registration.
type PatientSignupRequest struct {
	Phone    string `json:"phone" binding:"required,e164"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

// PatientSignup registers a patient and sends a verification code to their
// phone. The account stays unverified until the code is confirmed.
func (h *AuthHandler) PatientSignup(c *gin.Context) {
	var req PatientSignupRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.User
	if err := h.DB.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		utils.BadRequest(c, "Phone number already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	otp := utils.GenerateOTP()
	otpExpiry := time.Now().Add(time.Duration(h.Cfg.OTPExpiryMinutes) * time.Minute)

	user := models.User{
		Phone:     req.Phone,
		Name:      req.Name,
		Role:      models.RolePatient,
		OTP:       otp,
		OTPExpiry: &otpExpiry,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	if err := h.Notifier.Send(req.Phone, fmt.Sprintf("Your CareLink verification code is: %s. Valid for %d minutes.", otp, h.Cfg.OTPExpiryMinutes)); err != nil {
		// OTP delivery is best effort; the code can be re-requested
		fmt.Printf("otp delivery to %s failed: %v\n", req.Phone, err)
	}

	data := gin.H{"userId": user.ID}
	if h.Cfg.Environment == "development" {
		data["otp"] = otp
	}
	utils.Created(c, "Verification code sent to your phone number", data)
}

// VerifyOTPRequest represents the request body for confirming a phone.
type VerifyOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
	OTP    string `json:"otp" binding:"required,len=6"`
}

// VerifyOTP confirms a patient's phone number and logs them in.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if user.IsVerified {
		utils.BadRequest(c, "User already verified")
		return
	}
	if user.OTP != req.OTP {
		utils.BadRequest(c, "Invalid verification code")
		return
	}
	if user.OTPExpiry == nil || time.Now().After(*user.OTPExpiry) {
		utils.BadRequest(c, "Verification code expired")
		return
	}

	user.IsVerified = true
	user.OTP = ""
	user.OTPExpiry = nil
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	h.respondWithTokens(c, &user)
}

// PatientLoginRequest represents the request body for patient login.
type PatientLoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PatientLogin authenticates a verified patient by phone and password.
func (h *AuthHandler) PatientLogin(c *gin.Context) {
	var req PatientLoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("phone = ? AND role = ?", req.Phone, models.RolePatient).First(&user).Error; err != nil {
		utils.Unauthorized(c, "Invalid credentials")
		return
	}
	if !user.IsVerified {
		utils.Unauthorized(c, "Please verify your account first")
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid credentials")
		return
	}

	h.respondWithTokens(c, &user)
}

// FacilitySignupRequest represents the request body for hospital and lab
// registration.
type FacilitySignupRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	Name         string `json:"name" binding:"required"`
	HospitalName string `json:"hospitalName"`
}

// HospitalSignup registers a hospital account. Hospitals are auto-verified.
func (h *AuthHandler) HospitalSignup(c *gin.Context) {
	h.facilitySignup(c, models.RoleHospital)
}

// LabSignup registers a lab account. Labs are auto-verified.
func (h *AuthHandler) LabSignup(c *gin.Context) {
	h.facilitySignup(c, models.RoleLab)
}

func (h *AuthHandler) facilitySignup(c *gin.Context, role models.Role) {
	var req FacilitySignupRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if role == models.RoleHospital && req.HospitalName == "" {
		utils.BadRequest(c, "Hospital name is required")
		return
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.BadRequest(c, "Email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		HospitalName: req.HospitalName,
		Role:         role,
		IsVerified:   true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	h.respondWithTokens(c, &user)
}

// FacilityLoginRequest represents the request body for hospital or lab login.
type FacilityLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// HospitalLogin authenticates a hospital account.
func (h *AuthHandler) HospitalLogin(c *gin.Context) {
	h.facilityLogin(c, models.RoleHospital)
}

// LabLogin authenticates a lab account.
func (h *AuthHandler) LabLogin(c *gin.Context) {
	h.facilityLogin(c, models.RoleLab)
}

func (h *AuthHandler) facilityLogin(c *gin.Context, role models.Role) {
	var req FacilityLoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ? AND role = ?", req.Email, role).First(&user).Error; err != nil {
		utils.Unauthorized(c, "Invalid credentials")
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid credentials")
		return
	}

	h.respondWithTokens(c, &user)
}

// ForgotPasswordRequest represents the request body for starting a
// password reset.
type ForgotPasswordRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// ForgotPassword sends a password-reset code to a patient's phone.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("phone = ? AND role = ?", req.Phone, models.RolePatient).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	otp := utils.GenerateOTP()
	otpExpiry := time.Now().Add(time.Duration(h.Cfg.OTPExpiryMinutes) * time.Minute)
	user.OTP = otp
	user.OTPExpiry = &otpExpiry
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	if err := h.Notifier.Send(req.Phone, fmt.Sprintf("Your password reset code is: %s. Valid for %d minutes.", otp, h.Cfg.OTPExpiryMinutes)); err != nil {
		fmt.Printf("reset code delivery to %s failed: %v\n", req.Phone, err)
	}

	data := gin.H{"userId": user.ID}
	if h.Cfg.Environment == "development" {
		data["otp"] = otp
	}
	utils.Success(c, "Reset code sent to your phone number", data)
}

// ResetPasswordRequest represents the request body for completing a
// password reset.
type ResetPasswordRequest struct {
	UserID      string `json:"userId" binding:"required"`
	OTP         string `json:"otp" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// ResetPassword sets a new password after verifying the reset code.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if user.OTP == "" || user.OTP != req.OTP {
		utils.BadRequest(c, "Invalid reset code")
		return
	}
	if user.OTPExpiry == nil || time.Now().After(*user.OTPExpiry) {
		utils.BadRequest(c, "Reset code expired")
		return
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	user.OTP = ""
	user.OTPExpiry = nil
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	utils.Success(c, "Password reset successfully", nil)
}

// ChangePasswordRequest represents the request body for changing the
// password of a logged-in account.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword updates the authenticated user's password after checking
// the current one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !user.CheckPassword(req.CurrentPassword) {
		utils.BadRequest(c, "Current password is incorrect")
		return
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	if err := h.DB.Save(user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update password: "+err.Error())
		return
	}

	utils.Success(c, "Password changed successfully", nil)
}

// RefreshTokenRequest represents the request body for refreshing tokens.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	claims, err := utils.ValidateToken(req.RefreshToken, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}

	var stored models.RefreshToken
	err = h.DB.Where("user_id = ? AND token = ? AND is_revoked = ?", claims.UserID, req.RefreshToken, false).
		First(&stored).Error
	if err != nil {
		utils.Unauthorized(c, "Refresh token not recognized")
		return
	}
	if time.Now().After(stored.ExpiresAt) {
		utils.Unauthorized(c, "Refresh token expired")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.Unauthorized(c, "Account no longer exists")
		return
	}

	// Rotate: revoke the presented token and issue a fresh pair
	stored.IsRevoked = true
	if err := h.DB.Save(&stored).Error; err != nil {
		utils.InternalServerError(c, "Failed to rotate refresh token: "+err.Error())
		return
	}

	h.respondWithTokens(c, &user)
}

// Logout revokes all of the user's refresh tokens.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	err := h.DB.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", user.ID, false).
		Update("is_revoked", true).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to revoke tokens: "+err.Error())
		return
	}

	utils.Success(c, "Logged out successfully", nil)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, user *models.User) {
	accessToken, refreshTokenString, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate tokens: "+err.Error())
		return
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to store refresh token: "+err.Error())
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		User:         user.Sanitize(),
	})
}
