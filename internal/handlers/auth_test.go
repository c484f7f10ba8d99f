package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink-server/internal/models"
)

func TestPasswordResetFlow(t *testing.T) {
	db := newTestDB(t)
	notifier := &captureNotifier{}
	h := NewAuthHandler(db, testConfig(), notifier)

	patient := models.User{
		Phone:      "+15550000001",
		Name:       "Asha Rao",
		Role:       models.RolePatient,
		IsVerified: true,
	}
	require.NoError(t, patient.SetPassword("oldpass123"))
	require.NoError(t, db.Create(&patient).Error)

	w := invoke(t, h.ForgotPassword, "POST", map[string]string{"phone": patient.Phone}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// a reset code goes out over the notifier
	require.Len(t, notifier.to, 1)
	assert.Equal(t, patient.Phone, notifier.to[0])

	data := decodeData(t, w)
	otp, _ := data["otp"].(string)
	require.Len(t, otp, 6)

	// wrong code is rejected and leaves the password alone
	w = invoke(t, h.ResetPassword, "POST", map[string]string{
		"userId": patient.ID, "otp": "000000", "newPassword": "newpass456",
	}, "", nil)
	if otp != "000000" {
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	w = invoke(t, h.ResetPassword, "POST", map[string]string{
		"userId": patient.ID, "otp": otp, "newPassword": "newpass456",
	}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", patient.ID).Error)
	assert.True(t, stored.CheckPassword("newpass456"))
	assert.False(t, stored.CheckPassword("oldpass123"))
	// the code is single use
	assert.Empty(t, stored.OTP)

	w = invoke(t, h.ResetPassword, "POST", map[string]string{
		"userId": patient.ID, "otp": otp, "newPassword": "another789",
	}, "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForgotPasswordUnknownPhone(t *testing.T) {
	db := newTestDB(t)
	h := NewAuthHandler(db, testConfig(), &captureNotifier{})

	w := invoke(t, h.ForgotPassword, "POST", map[string]string{"phone": "+15550009999"}, "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetPasswordExpiredCode(t *testing.T) {
	db := newTestDB(t)
	h := NewAuthHandler(db, testConfig(), &captureNotifier{})

	expired := time.Now().Add(-time.Minute)
	patient := models.User{
		Phone:      "+15550000001",
		Name:       "Asha Rao",
		Role:       models.RolePatient,
		IsVerified: true,
		OTP:        "123456",
		OTPExpiry:  &expired,
	}
	require.NoError(t, patient.SetPassword("oldpass123"))
	require.NoError(t, db.Create(&patient).Error)

	w := invoke(t, h.ResetPassword, "POST", map[string]string{
		"userId": patient.ID, "otp": "123456", "newPassword": "newpass456",
	}, "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", patient.ID).Error)
	assert.True(t, stored.CheckPassword("oldpass123"))
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)
	h := NewAuthHandler(db, testConfig(), &captureNotifier{})

	patient := models.User{
		Phone:      "+15550000001",
		Name:       "Asha Rao",
		Role:       models.RolePatient,
		IsVerified: true,
	}
	require.NoError(t, patient.SetPassword("oldpass123"))
	require.NoError(t, db.Create(&patient).Error)

	w := invoke(t, h.ChangePassword, "PUT", map[string]string{
		"currentPassword": "wrongpass", "newPassword": "newpass456",
	}, patient.ID, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = invoke(t, h.ChangePassword, "PUT", map[string]string{
		"currentPassword": "oldpass123", "newPassword": "newpass456",
	}, patient.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", patient.ID).Error)
	assert.True(t, stored.CheckPassword("newpass456"))
}
