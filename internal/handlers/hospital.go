package handlers

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carelink-server/internal/models"
	"carelink-server/internal/services"
	"carelink-server/internal/utils"
)

// HospitalHandler handles the hospital-facing surface: prescriptions,
// emergency and regular admissions, consent requests, and consent-gated
// patient record views.
type HospitalHandler struct {
	DB            *gorm.DB
	Clock         services.Clock
	Consents      *services.ConsentService
	Admissions    *services.AdmissionService
	Emergency     *services.EmergencyService
	Prescriptions *services.PrescriptionService
	Access        *services.AccessResolver
}

// NewHospitalHandler creates a new HospitalHandler.
func NewHospitalHandler(db *gorm.DB, clock services.Clock) *HospitalHandler {
	return &HospitalHandler{
		DB:            db,
		Clock:         clock,
		Consents:      services.NewConsentService(db, clock),
		Admissions:    services.NewAdmissionService(db, clock),
		Emergency:     services.NewEmergencyService(db, clock),
		Prescriptions: services.NewPrescriptionService(db, clock),
		Access:        services.NewAccessResolver(db),
	}
}

// Dashboard returns privacy-safe aggregates: today's prescription count,
// active admissions and emergency patients, and pending consent requests.
func (h *HospitalHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	now := h.Clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	var prescriptionsToday int64
	if err := h.DB.Model(&models.Prescription{}).
		Where("hospital_id = ? AND date >= ? AND date < ?", user.ID, today, tomorrow).
		Count(&prescriptionsToday).Error; err != nil {
		utils.InternalServerError(c, "Failed to count prescriptions: "+err.Error())
		return
	}

	admissions, err := h.Admissions.List(user.ID, true)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch admissions: "+err.Error())
		return
	}

	emergencyPatients, err := h.Emergency.List(user.ID, true)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch emergency patients: "+err.Error())
		return
	}

	var pendingConsents []models.Consent
	if err := h.DB.Where("hospital_id = ? AND status = ?", user.ID, models.ConsentPending).
		Order("requested_at desc").Find(&pendingConsents).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch consents: "+err.Error())
		return
	}

	utils.Success(c, "Dashboard fetched successfully", gin.H{
		"prescriptionsTodayCount": prescriptionsToday,
		"admittedPatients":        sanitizeAdmissions(admissions),
		"emergencyPatients":       emergencyPatients,
		"pendingConsents":         pendingConsents,
	})
}

// MedicineRequest is one medicine entry on a prescription request.
type MedicineRequest struct {
	Name     string `json:"name" binding:"required"`
	Dosage   string `json:"dosage" binding:"required"`
	Timing   string `json:"timing"`
	Duration int    `json:"duration" binding:"required,min=1"`
}

// CreatePrescriptionRequest represents the request body for creating a
// prescription. Either EmergencyPatientID or the phone/name pair is set.
type CreatePrescriptionRequest struct {
	PatientPhone       string            `json:"patientPhone"`
	PatientName        string            `json:"patientName"`
	FamilyMemberID     string            `json:"familyMemberId"`
	EmergencyPatientID string            `json:"emergencyPatientId"`
	Medicines          []MedicineRequest `json:"medicines" binding:"required,min=1,dive"`
	Notes              string            `json:"notes"`
}

// CreatePrescription issues a prescription for a regular or an emergency
// patient.
func (h *HospitalHandler) CreatePrescription(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req CreatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var ref services.PatientRef
	if req.EmergencyPatientID != "" {
		emergencyPatient, err := h.Emergency.Get(user.ID, req.EmergencyPatientID)
		if err != nil {
			ServiceError(c, err)
			return
		}
		if !emergencyPatient.IsActive {
			utils.NotFound(c, "Emergency patient not found or discharged")
			return
		}
		ref = services.EmergencyPatientRef(emergencyPatient)
	} else {
		patient, err := h.findPatientByPhone(req.PatientPhone)
		if err != nil {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
		ref = services.RealPatientRef(req.PatientName, req.PatientPhone, patient, req.FamilyMemberID)
	}

	prescription, err := h.Prescriptions.Create(user, ref, toMedicines(req.Medicines), req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}

	utils.Created(c, "Prescription created successfully", prescription)
}

// UpdatePrescriptionRequest represents the request body for editing a
// prescription's medicine list.
type UpdatePrescriptionRequest struct {
	Medicines []MedicineRequest `json:"medicines" binding:"required,min=1,dive"`
	Notes     string            `json:"notes"`
}

// UpdatePrescription replaces a prescription's medicines and regenerates
// its reminders.
func (h *HospitalHandler) UpdatePrescription(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req UpdatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	prescription, err := h.Prescriptions.Update(user, c.Param("id"), toMedicines(req.Medicines), req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}

	utils.Success(c, "Prescription updated successfully", prescription)
}

// prescriptionSummary is the privacy-safe projection shown to hospitals in
// list views: no patient name, phone or id.
type prescriptionSummary struct {
	ID                 string            `json:"id"`
	DoctorName         string            `json:"doctorName"`
	HospitalName       string            `json:"hospitalName"`
	Medicines          []models.Medicine `json:"medicines"`
	Date               time.Time         `json:"date"`
	Notes              string            `json:"notes"`
	IsEmergencyPatient bool              `json:"isEmergencyPatient"`
}

// ListPrescriptions returns the hospital's prescriptions without patient
// personal data.
func (h *HospitalHandler) ListPrescriptions(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var prescriptions []models.Prescription
	if err := h.DB.Preload("Medicines").
		Where("hospital_id = ?", user.ID).
		Order("date desc").Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}

	summaries := make([]prescriptionSummary, len(prescriptions))
	for i, p := range prescriptions {
		summaries[i] = prescriptionSummary{
			ID:                 p.ID,
			DoctorName:         p.DoctorName,
			HospitalName:       p.HospitalName,
			Medicines:          p.Medicines,
			Date:               p.Date,
			Notes:              p.Notes,
			IsEmergencyPatient: p.IsEmergencyPatient,
		}
	}

	utils.Success(c, "Prescriptions fetched successfully", summaries)
}

// reportSummary is the privacy-safe projection of a report for hospital
// list views.
type reportSummary struct {
	ID                 string              `json:"id"`
	ReportType         string              `json:"reportType"`
	ReportName         string              `json:"reportName"`
	FileName           string              `json:"fileName"`
	Date               time.Time           `json:"date"`
	Description        string              `json:"description"`
	UploadedBy         models.ReportOrigin `json:"uploadedBy"`
	LabName            string              `json:"labName,omitempty"`
	HospitalName       string              `json:"hospitalName,omitempty"`
	IsEmergencyPatient bool                `json:"isEmergencyPatient"`
}

// ListReports returns lab reports plus the hospital's own emergency-patient
// reports, without patient personal data.
func (h *HospitalHandler) ListReports(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var reports []models.MedicalReport
	err := h.DB.Omit("file_data").
		Where("(hospital_id = ? AND uploaded_by = ?) OR uploaded_by = ?",
		user.ID, models.ReportFromHospital, models.ReportFromLab).
		Order("date desc").Find(&reports).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	summaries := make([]reportSummary, len(reports))
	for i, r := range reports {
		summaries[i] = reportSummary{
			ID:                 r.ID,
			ReportType:         r.ReportType,
			ReportName:         r.ReportName,
			FileName:           r.FileName,
			Date:               r.Date,
			Description:        r.Description,
			UploadedBy:         r.UploadedBy,
			LabName:            r.LabName,
			HospitalName:       r.HospitalName,
			IsEmergencyPatient: r.IsEmergencyPatient,
		}
	}

	utils.Success(c, "Reports fetched successfully", summaries)
}

// DownloadReport streams a report file the hospital can see in ListReports:
// its own emergency-patient uploads or any lab upload.
func (h *HospitalHandler) DownloadReport(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var report models.MedicalReport
	err := h.DB.Where("id = ? AND ((hospital_id = ? AND uploaded_by = ?) OR uploaded_by = ?)",
		c.Param("id"), user.ID, models.ReportFromHospital, models.ReportFromLab).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	contentType := report.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", "attachment; filename=\""+report.FileName+"\"")
	c.Data(200, contentType, report.FileData)
}

// AdmitEmergencyRequest represents the request body for admitting an
// emergency patient by bed label only.
type AdmitEmergencyRequest struct {
	BedNumber string `json:"bedNumber" binding:"required"`
	Notes     string `json:"notes"`
}

// AdmitEmergency allocates a temporary identity for a bed.
func (h *HospitalHandler) AdmitEmergency(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req AdmitEmergencyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, err := h.Emergency.Admit(user.ID, req.BedNumber, req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}

	utils.Created(c, "Emergency patient admitted successfully", patient)
}

// ListEmergency returns the hospital's emergency patients; ?active=true
// narrows to current occupants.
func (h *HospitalHandler) ListEmergency(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	patients, err := h.Emergency.List(user.ID, c.Query("active") == "true")
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch emergency patients: "+err.Error())
		return
	}

	utils.Success(c, "Emergency patients fetched successfully", patients)
}

// GetEmergency returns one emergency patient with their prescriptions and
// reports.
func (h *HospitalHandler) GetEmergency(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	patient, err := h.Emergency.Get(user.ID, c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	var prescriptions []models.Prescription
	if err := h.DB.Preload("Medicines").
		Where("emergency_patient_id = ?", patient.ID).
		Order("date desc").Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}

	var reports []models.MedicalReport
	if err := h.DB.Omit("file_data").
		Where("emergency_patient_id = ?", patient.ID).
		Order("date desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	utils.Success(c, "Emergency patient fetched successfully", gin.H{
		"emergencyPatient": patient,
		"prescriptions":    prescriptions,
		"reports":          reports,
	})
}

// DischargeEmergency ends an emergency admission and frees the bed.
func (h *HospitalHandler) DischargeEmergency(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	if err := h.Emergency.Discharge(user.ID, c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}

	utils.Success(c, "Emergency patient discharged successfully", nil)
}

// UploadEmergencyReport attaches a report file to one of the hospital's
// active emergency patients. Reports for regular patients come only from
// labs; this is the single hospital upload path.
func (h *HospitalHandler) UploadEmergencyReport(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	patient, err := h.Emergency.Get(user.ID, c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	if !patient.IsActive {
		utils.NotFound(c, "Emergency patient not found or discharged")
		return
	}

	reportType := c.PostForm("reportType")
	reportName := c.PostForm("reportName")
	if reportType == "" || reportName == "" {
		utils.BadRequest(c, "Report type and report name are required")
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

	report := models.MedicalReport{
		PatientName:        patient.DisplayName(),
		PatientPhone:       patient.ReferencePhone(),
		EmergencyPatientID: patient.ID,
		IsEmergencyPatient: true,
		HospitalID:         user.ID,
		HospitalName:       user.DisplayName(),
		UploadedBy:         models.ReportFromHospital,
		ReportType:         reportType,
		ReportName:         reportName,
		Description:        c.PostForm("description"),
		Date:               h.Clock.Now(),
		FileName:           header.Filename,
		FileType:           header.Header.Get("Content-Type"),
		FileData:           fileData,
	}
	if err := h.DB.Create(&report).Error; err != nil {
		utils.InternalServerError(c, "Failed to save report: "+err.Error())
		return
	}

	utils.Created(c, "Report uploaded successfully", reportSummary{
		ID:                 report.ID,
		ReportType:         report.ReportType,
		ReportName:         report.ReportName,
		FileName:           report.FileName,
		Date:               report.Date,
		Description:        report.Description,
		UploadedBy:         report.UploadedBy,
		HospitalName:       report.HospitalName,
		IsEmergencyPatient: true,
	})
}

// AdmitRequest represents the request body for admitting a regular patient.
type AdmitRequest struct {
	PatientPhone string `json:"patientPhone" binding:"required,e164"`
	PatientName  string `json:"patientName" binding:"required"`
	Notes        string `json:"notes"`
}

// Admit opens a stay for an identified patient.
func (h *HospitalHandler) Admit(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req AdmitRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	admission, err := h.Admissions.Admit(user.ID, req.PatientPhone, req.PatientName, req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}

	utils.Created(c, "Patient admitted successfully", admission)
}

// DischargeAdmission ends a regular admission.
func (h *HospitalHandler) DischargeAdmission(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	if err := h.Admissions.Discharge(user.ID, c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}

	utils.Success(c, "Patient discharged successfully", nil)
}

// ListAdmissions returns the hospital's admissions; ?active=true narrows to
// current stays.
func (h *HospitalHandler) ListAdmissions(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	admissions, err := h.Admissions.List(user.ID, c.Query("active") == "true")
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch admissions: "+err.Error())
		return
	}

	utils.Success(c, "Admissions fetched successfully", admissions)
}

// RequestConsentRequest represents the request body for asking a patient
// for record access.
type RequestConsentRequest struct {
	PatientPhone string `json:"patientPhone" binding:"required,e164"`
	PatientName  string `json:"patientName" binding:"required"`
}

// RequestConsent opens a pending consent request toward a registered
// patient.
func (h *HospitalHandler) RequestConsent(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req RequestConsentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, err := h.findPatientByPhone(req.PatientPhone)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if patient == nil {
		utils.NotFound(c, "Patient not found")
		return
	}

	consent, err := h.Consents.Request(user, patient, req.PatientName, req.PatientPhone)
	if err != nil {
		ServiceError(c, err)
		return
	}

	utils.Created(c, "Consent request sent successfully", consent)
}

// RevokeConsent gives up a granted consent.
func (h *HospitalHandler) RevokeConsent(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	if err := h.Consents.Revoke(c.Param("consentId"), user); err != nil {
		ServiceError(c, err)
		return
	}

	utils.Success(c, "Access revoked successfully", nil)
}

// ListConsents returns the hospital's consent requests, newest first;
// ?status=granted narrows to active grants.
func (h *HospitalHandler) ListConsents(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var consents []models.Consent
	var err error
	if c.Query("status") == "granted" {
		consents, err = h.Consents.ListGrantedForHospital(user.ID)
	} else {
		consents, err = h.Consents.ListForHospital(user.ID)
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch consents: "+err.Error())
		return
	}

	utils.Success(c, "Consents fetched successfully", consents)
}

// PatientInfo returns a patient's records to a hospital holding access via
// an active admission or a granted consent. The response does not disclose
// which records exist for patients the hospital cannot access.
func (h *HospitalHandler) PatientInfo(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var patient models.User
	err := h.DB.Where("id = ? AND role = ?", c.Param("patientId"), models.RolePatient).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	grant, err := h.Access.Resolve(user.ID, patient.ID)
	if err != nil {
		utils.InternalServerError(c, "Failed to resolve access: "+err.Error())
		return
	}
	if !grant.Allowed() {
		utils.Forbidden(c, "Access denied. No consent or active admission")
		return
	}

	var prescriptions []models.Prescription
	if err := h.DB.Preload("Medicines").
		Where("patient_id = ? AND is_emergency_patient = ?", patient.ID, false).
		Order("date desc").Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}

	var reports []models.MedicalReport
	if err := h.DB.Omit("file_data").
		Where("patient_id = ? AND is_emergency_patient = ?", patient.ID, false).
		Order("date desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	response := gin.H{
		"patient": gin.H{
			"name":  patient.Name,
			"phone": patient.Phone,
		},
		"prescriptions": prescriptions,
		"reports":       reports,
	}
	if grant.Consent != nil {
		response["consentId"] = grant.Consent.ID
	}

	utils.Success(c, "Patient info fetched successfully", response)
}

func (h *HospitalHandler) findPatientByPhone(phone string) (*models.User, error) {
	if phone == "" {
		return nil, nil
	}
	var patient models.User
	err := h.DB.Where("phone = ? AND role = ?", phone, models.RolePatient).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func toMedicines(reqs []MedicineRequest) []models.Medicine {
	medicines := make([]models.Medicine, len(reqs))
	for i, m := range reqs {
		medicines[i] = models.Medicine{
			Name:     m.Name,
			Dosage:   m.Dosage,
			Timing:   m.Timing,
			Duration: m.Duration,
		}
	}
	return medicines
}

// sanitizeAdmissions strips patient identity from admission rows for
// dashboard display.
func sanitizeAdmissions(admissions []models.Admission) []gin.H {
	out := make([]gin.H, len(admissions))
	for i, a := range admissions {
		out[i] = gin.H{
			"id":            a.ID,
			"hospitalId":    a.HospitalID,
			"notes":         a.Notes,
			"isActive":      a.IsActive,
			"admissionDate": a.AdmissionDate,
		}
	}
	return out
}
