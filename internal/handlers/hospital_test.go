package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink-server/internal/models"
	"carelink-server/internal/services"
)

func TestHospitalCanDownloadEveryListedReport(t *testing.T) {
	db := newTestDB(t)
	h := NewHospitalHandler(db, services.SystemClock())

	hospital := models.User{
		Email: "city@example.com", Name: "Dr. Admin", HospitalName: "City General",
		Password: "hashed", Role: models.RoleHospital, IsVerified: true,
	}
	require.NoError(t, db.Create(&hospital).Error)

	// a lab upload with no hospital routing still shows in hospital lists
	unrouted := models.MedicalReport{
		PatientName:  "Asha Rao",
		PatientPhone: "+15550000001",
		LabName:      "Prism Diagnostics",
		UploadedBy:   models.ReportFromLab,
		ReportType:   "Blood Test",
		ReportName:   "CBC",
		Date:         time.Now(),
		FileName:     "cbc.pdf",
		FileType:     "application/pdf",
		FileData:     []byte("pdf-bytes"),
	}
	require.NoError(t, db.Create(&unrouted).Error)

	own := models.MedicalReport{
		PatientName:        "Emergency Patient - Bed ER-1",
		HospitalID:         hospital.ID,
		HospitalName:       "City General",
		IsEmergencyPatient: true,
		UploadedBy:         models.ReportFromHospital,
		ReportType:         "X-Ray",
		ReportName:         "Chest",
		Date:               time.Now(),
		FileName:           "chest.png",
		FileType:           "image/png",
		FileData:           []byte("png-bytes"),
	}
	require.NoError(t, db.Create(&own).Error)

	w := invoke(t, h.ListReports, "GET", nil, hospital.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)

	// everything the list shows must be downloadable
	for _, listed := range envelope.Data {
		w := invoke(t, h.DownloadReport, "GET", nil, hospital.ID,
			gin.Params{{Key: "id", Value: listed.ID}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.Bytes())
	}
}

func TestHospitalCannotDownloadAnotherHospitalsUpload(t *testing.T) {
	db := newTestDB(t)
	h := NewHospitalHandler(db, services.SystemClock())

	hospital := models.User{
		Email: "city@example.com", Name: "Dr. Admin", HospitalName: "City General",
		Password: "hashed", Role: models.RoleHospital, IsVerified: true,
	}
	require.NoError(t, db.Create(&hospital).Error)
	other := models.User{
		Email: "lakeside@example.com", Name: "Dr. Lake", HospitalName: "Lakeside Clinic",
		Password: "hashed", Role: models.RoleHospital, IsVerified: true,
	}
	require.NoError(t, db.Create(&other).Error)

	foreign := models.MedicalReport{
		PatientName:        "Emergency Patient - Bed ER-2",
		HospitalID:         other.ID,
		HospitalName:       "Lakeside Clinic",
		IsEmergencyPatient: true,
		UploadedBy:         models.ReportFromHospital,
		ReportType:         "X-Ray",
		ReportName:         "Arm",
		Date:               time.Now(),
		FileName:           "arm.png",
		FileType:           "image/png",
		FileData:           []byte("png-bytes"),
	}
	require.NoError(t, db.Create(&foreign).Error)

	w := invoke(t, h.DownloadReport, "GET", nil, hospital.ID,
		gin.Params{{Key: "id", Value: foreign.ID}})
	require.Equal(t, http.StatusNotFound, w.Code)
}
