package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dental-clinic-server/internal/middleware"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/utils"
)

// AdminHandler manages staff accounts.
type AdminHandler struct {
	DB *gorm.DB
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

// CreateAdminRequest represents the request body for creating an admin.
type CreateAdminRequest struct {
	Username string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// CreateAdmin adds a staff account.
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	admin, err := models.CreateAdmin(c.Request.Context(), h.DB, req.Username, req.Password)
	if errors.Is(err, models.ErrAdminExists) {
		utils.Conflict(c, "Admin with this username already exists")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to create admin", err)
		return
	}

	utils.Created(c, "Admin created successfully", admin.Sanitize())
}

// ListAdmins returns every staff account, oldest first.
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	var admins []models.Admin
	if err := h.DB.WithContext(c.Request.Context()).Order("created_at asc").Find(&admins).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch admins", err)
		return
	}

	sanitized := make([]models.AdminSanitized, len(admins))
	for i := range admins {
		sanitized[i] = admins[i].Sanitize()
	}
	utils.Success(c, "Admins fetched successfully", sanitized)
}

// DeleteAdmin removes a staff account and its refresh tokens. Admins cannot
// delete themselves.
func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	id := c.Param("id")
	if self, _ := middleware.GetUserIDFromContext(c); self == id {
		utils.BadRequest(c, "You cannot delete your own account")
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var admin models.Admin
	if err := db.First(&admin, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Admin not found")
		} else {
			utils.InternalServerError(c, "Database error", err)
		}
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("admin_id = ?", admin.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Admin{}, "id = ?", admin.ID).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete admin", err)
		return
	}

	utils.Success(c, "Admin deleted successfully", nil)
}
