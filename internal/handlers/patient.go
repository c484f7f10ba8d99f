package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carelink-server/internal/models"
	"carelink-server/internal/services"
	"carelink-server/internal/utils"
)

// PatientHandler handles the patient-facing surface: dashboards,
// prescriptions, reports, reminders, family members, notifications and
// consent responses.
type PatientHandler struct {
	DB        *gorm.DB
	Clock     services.Clock
	Consents  *services.ConsentService
	Reminders *services.ReminderService
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB, clock services.Clock) *PatientHandler {
	return &PatientHandler{
		DB:        db,
		Clock:     clock,
		Consents:  services.NewConsentService(db, clock),
		Reminders: services.NewReminderService(db, clock),
	}
}

// Dashboard returns the patient's upcoming reminders, recent prescriptions
// and reports, unread notifications and pending consent requests. Records
// issued against the patient's phone before signup are claimed here.
func (h *PatientHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	if err := h.claimRecordsByPhone(user); err != nil {
		utils.InternalServerError(c, "Failed to link records: "+err.Error())
		return
	}

	reminders, err := h.Reminders.Upcoming(user.ID, "", 10)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch reminders: "+err.Error())
		return
	}

	var prescriptions []models.Prescription
	if err := h.DB.Preload("Medicines").
		Where("patient_id = ?", user.ID).
		Order("date desc").Limit(5).Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}

	var reports []models.MedicalReport
	if err := h.DB.Omit("file_data").
		Where("patient_id = ?", user.ID).
		Order("date desc").Limit(5).Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	var unreadCount int64
	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&unreadCount).Error; err != nil {
		utils.InternalServerError(c, "Failed to count notifications: "+err.Error())
		return
	}

	var pendingConsents []models.Consent
	if err := h.DB.Where("patient_id = ? AND status = ?", user.ID, models.ConsentPending).
		Order("requested_at desc").Find(&pendingConsents).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch consents: "+err.Error())
		return
	}

	utils.Success(c, "Dashboard fetched successfully", gin.H{
		"upcomingReminders":   reminders,
		"recentPrescriptions": prescriptions,
		"recentReports":       reports,
		"unreadNotifications": unreadCount,
		"pendingConsents":     pendingConsents,
	})
}

// ListPrescriptions returns the patient's own prescriptions, or a family
// member's with ?familyMemberId.
func (h *PatientHandler) ListPrescriptions(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	if err := h.claimRecordsByPhone(user); err != nil {
		utils.InternalServerError(c, "Failed to link records: "+err.Error())
		return
	}

	query := h.DB.Preload("Medicines").Where("patient_id = ?", user.ID)
	if familyMemberID := c.Query("familyMemberId"); familyMemberID != "" {
		query = query.Where("family_member_id = ?", familyMemberID)
	} else {
		query = query.Where("family_member_id = ?", "")
	}

	var prescriptions []models.Prescription
	if err := query.Order("date desc").Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}

	utils.Success(c, "Prescriptions fetched successfully", prescriptions)
}

// ListReports returns the patient's report metadata. File bytes are served
// separately by DownloadReport.
func (h *PatientHandler) ListReports(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	if err := h.claimRecordsByPhone(user); err != nil {
		utils.InternalServerError(c, "Failed to link records: "+err.Error())
		return
	}

	var reports []models.MedicalReport
	if err := h.DB.Omit("file_data").
		Where("patient_id = ?", user.ID).
		Order("date desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	utils.Success(c, "Reports fetched successfully", reports)
}

// DownloadReport streams a report file belonging to the patient.
func (h *PatientHandler) DownloadReport(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var report models.MedicalReport
	err := h.DB.Where("id = ? AND patient_id = ?", c.Param("id"), user.ID).First(&report).Error
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

// ListReminders returns the patient's reminders, or a family member's with
// ?familyMemberId.
func (h *PatientHandler) ListReminders(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	reminders, err := h.Reminders.ListForPatient(user.ID, c.Query("familyMemberId"))
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch reminders: "+err.Error())
		return
	}

	utils.Success(c, "Reminders fetched successfully", reminders)
}

// CompleteReminder marks a reminder as done for the rest of its course.
func (h *PatientHandler) CompleteReminder(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	if err := h.Reminders.Complete(user.ID, c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}

	utils.Success(c, "Reminder marked as completed", nil)
}

// ToggleReminder pauses or resumes a reminder.
func (h *PatientHandler) ToggleReminder(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	reminder, err := h.Reminders.Toggle(user.ID, c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	utils.Success(c, "Reminder updated successfully", reminder)
}

// ListFamilyMembers returns the patient's registered family members.
func (h *PatientHandler) ListFamilyMembers(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var members []models.FamilyMember
	if err := h.DB.Where("patient_id = ?", user.ID).
		Order("created_at asc").Find(&members).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch family members: "+err.Error())
		return
	}

	utils.Success(c, "Family members fetched successfully", members)
}

// AddFamilyMemberRequest represents the request body for adding a family
// member under the patient's account.
type AddFamilyMemberRequest struct {
	Name         string `json:"name" binding:"required"`
	Age          int    `json:"age" binding:"required,min=0,max=150"`
	Gender       string `json:"gender" binding:"required,oneof=male female other"`
	Relationship string `json:"relationship" binding:"required"`
}

// AddFamilyMember registers a dependent under the patient's account.
func (h *PatientHandler) AddFamilyMember(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req AddFamilyMemberRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	member := models.FamilyMember{
		PatientID:    user.ID,
		Name:         req.Name,
		Age:          req.Age,
		Gender:       req.Gender,
		Relationship: req.Relationship,
	}
	if err := h.DB.Create(&member).Error; err != nil {
		utils.InternalServerError(c, "Failed to add family member: "+err.Error())
		return
	}

	utils.Created(c, "Family member added successfully", member)
}

// ListNotifications returns the patient's notifications, newest first.
func (h *PatientHandler) ListNotifications(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var notifications []models.Notification
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at desc").Limit(50).Find(&notifications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch notifications: "+err.Error())
		return
	}

	utils.Success(c, "Notifications fetched successfully", notifications)
}

// MarkNotificationRead marks one of the patient's notifications as read.
func (h *PatientHandler) MarkNotificationRead(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	result := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		Update("is_read", true)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to update notification: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Notification not found")
		return
	}

	utils.Success(c, "Notification marked as read", nil)
}

// ListConsents returns the consent requests addressed to the patient.
func (h *PatientHandler) ListConsents(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	query := h.DB.Where("patient_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var consents []models.Consent
	if err := query.Order("requested_at desc").Find(&consents).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch consents: "+err.Error())
		return
	}

	utils.Success(c, "Consents fetched successfully", consents)
}

// RespondConsentRequest represents the request body for answering a
// pending consent request.
type RespondConsentRequest struct {
	Action string `json:"action" binding:"required,oneof=grant deny"`
}

// RespondConsent grants or denies a pending consent request.
func (h *PatientHandler) RespondConsent(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req RespondConsentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	consent, err := h.Consents.Respond(c.Param("consentId"), user, services.ConsentAction(req.Action))
	if err != nil {
		ServiceError(c, err)
		return
	}

	utils.Success(c, "Consent "+string(consent.Status)+" successfully", consent)
}

// UpdateProfileRequest represents the request body for editing the
// patient's profile.
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

// UpdateProfile updates the patient's display name and email.
func (h *PatientHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c, h.DB)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user.Name = req.Name
	if req.Email != "" {
		user.Email = req.Email
	}
	if err := h.DB.Save(user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// claimRecordsByPhone links records issued against the patient's phone
// number before they registered. Newly linked prescriptions get their
// reminder schedules generated.
func (h *PatientHandler) claimRecordsByPhone(user *models.User) error {
	var prescriptions []models.Prescription
	err := h.DB.Preload("Medicines").
		Where("patient_phone = ? AND (patient_id = ? OR patient_id IS NULL) AND is_emergency_patient = ?",
			user.Phone, "", false).
		Find(&prescriptions).Error
	if err != nil {
		return err
	}
	for i := range prescriptions {
		p := &prescriptions[i]
		p.PatientID = user.ID
		if err := h.DB.Model(p).Update("patient_id", user.ID).Error; err != nil {
			return err
		}
		if err := h.Reminders.RegenerateForPrescription(p); err != nil {
			return err
		}
	}

	err = h.DB.Model(&models.MedicalReport{}).
		Where("patient_phone = ? AND (patient_id = ? OR patient_id IS NULL) AND is_emergency_patient = ?",
			user.Phone, "", false).
		Update("patient_id", user.ID).Error
	if err != nil {
		return err
	}

	return h.DB.Model(&models.Admission{}).
		Where("patient_phone = ? AND (patient_id = ? OR patient_id IS NULL)", user.Phone, "").
		Update("patient_id", user.ID).Error
}
