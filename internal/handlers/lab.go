package handlers

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carelink-server/internal/models"
	"carelink-server/internal/services"
	"carelink-server/internal/utils"
)

// LabHandler handles the lab-facing surface: uploading diagnostic reports
// and browsing the lab's own uploads.
type LabHandler struct {
	DB    *gorm.DB
	Clock services.Clock
}

// NewLabHandler creates a new LabHandler.
func NewLabHandler(db *gorm.DB, clock services.Clock) *LabHandler {
	return &LabHandler{DB: db, Clock: clock}
}

// Dashboard returns the lab's recent uploads and totals.
func (h *LabHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var total int64
	if err := h.DB.Model(&models.MedicalReport{}).
		Where("lab_id = ?", user.ID).Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to count reports: "+err.Error())
		return
	}

	var reports []models.MedicalReport
	if err := h.DB.Omit("file_data").
		Where("lab_id = ?", user.ID).
		Order("date desc").Limit(50).Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	utils.Success(c, "Dashboard fetched successfully", gin.H{
		"totalReports":  total,
		"recentReports": reports,
	})
}

// UploadReport stores a diagnostic report for a patient identified by
// phone number. When the phone belongs to a registered account the report
// is linked and the patient notified; otherwise it waits to be claimed at
// signup.
func (h *LabHandler) UploadReport(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	patientPhone := strings.TrimSpace(c.PostForm("patientPhone"))
	patientName := strings.TrimSpace(c.PostForm("patientName"))
	reportType := c.PostForm("reportType")
	reportName := c.PostForm("reportName")
	if patientPhone == "" || patientName == "" || reportType == "" || reportName == "" {
		utils.BadRequest(c, "Patient phone, patient name, report type and report name are required")
		return
	}

	file, header, err := c.Request.FormFile("report")
	if err != nil {
		utils.BadRequest(c, "Report file is required")
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		utils.InternalServerError(c, "Error reading file content: "+err.Error())
		return
	}

	patient, err := h.matchPatient(patientPhone, patientName)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	report := models.MedicalReport{
		PatientName:  patientName,
		PatientPhone: patientPhone,
		LabID:        user.ID,
		LabName:      user.DisplayName(),
		UploadedBy:   models.ReportFromLab,
		ReportType:   reportType,
		ReportName:   reportName,
		Description:  c.PostForm("description"),
		Date:         h.Clock.Now(),
		FileName:     header.Filename,
		FileType:     header.Header.Get("Content-Type"),
		FileData:     fileData,
	}
	if patient != nil {
		report.PatientID = patient.ID
	}
	if hospitalName := strings.TrimSpace(c.PostForm("hospitalName")); hospitalName != "" {
		report.HospitalName = hospitalName
		var hospital models.User
		err := h.DB.Where("role = ? AND hospital_name LIKE ?", models.RoleHospital, "%"+hospitalName+"%").
			First(&hospital).Error
		if err == nil {
			report.HospitalID = hospital.ID
			report.HospitalName = hospital.DisplayName()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		if patient != nil {
			return services.CreateNotification(tx, patient.ID, models.NotificationReport,
				"New Medical Report",
				"A new report ("+report.ReportName+") was uploaded by "+user.DisplayName(),
				report.ID)
		}
		return nil
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to save report: "+err.Error())
		return
	}

	utils.Created(c, "Report uploaded successfully", report)
}

// ListReports returns the lab's uploads; ?reportType filters by type.
func (h *LabHandler) ListReports(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	query := h.DB.Omit("file_data").Where("lab_id = ?", user.ID)
	if reportType := c.Query("reportType"); reportType != "" {
		query = query.Where("report_type = ?", reportType)
	}

	var reports []models.MedicalReport
	if err := query.Order("date desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	utils.Success(c, "Reports fetched successfully", reports)
}

// matchPatient resolves a registered patient for an upload. Phone plus
// case-insensitive name is tried first, then phone alone.
func (h *LabHandler) matchPatient(phone, name string) (*models.User, error) {
	var patient models.User
	err := h.DB.Where("phone = ? AND role = ? AND LOWER(name) = ?",
		phone, models.RolePatient, strings.ToLower(name)).First(&patient).Error
	if err == nil {
		return &patient, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = h.DB.Where("phone = ? AND role = ?", phone, models.RolePatient).First(&patient).Error
	if err == nil {
		return &patient, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}
