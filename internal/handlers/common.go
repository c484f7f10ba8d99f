package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carelink-server/internal/middleware"
	"carelink-server/internal/models"
	"carelink-server/internal/services"
	"carelink-server/internal/utils"
)

// ServiceError maps a core service error onto the matching HTTP response.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidTransition):
		utils.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAccessDenied):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrValidation):
		utils.BadRequest(c, err.Error())
	default:
		utils.InternalServerError(c, err.Error())
	}
}

// currentUser loads the authenticated account for the user id in the token.
// Writes the error response itself when it returns false.
func currentUser(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User ID not found in token")
		return nil, false
	}

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Account no longer exists")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &user, true
}
