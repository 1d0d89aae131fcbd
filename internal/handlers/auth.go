package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dental-clinic-server/internal/config"
	"dental-clinic-server/internal/metrics"
	"dental-clinic-server/internal/middleware"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles admin session requests.
type AuthHandler struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Metrics: m, Log: logger.With().Str("component", "auth").Logger()}
}

// LoginRequest represents the request body for admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string                `json:"accessToken"`
	RefreshToken string                `json:"refreshToken"`
	User         models.AdminSanitized `json:"user"`
}

// Login handles admin login. Accounts still holding a plaintext password are
// re-hashed on their first successful login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var admin models.Admin
	if err := db.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.Metrics.LoginAttempt(false)
			utils.Unauthorized(c, "Invalid credentials")
		} else {
			utils.InternalServerError(c, "An error occurred during authentication", err)
		}
		return
	}

	if !admin.CheckPassword(req.Password) {
		h.Metrics.LoginAttempt(false)
		h.Log.Warn().Str("username", admin.Username).Msg("failed login")
		utils.Unauthorized(c, "Invalid credentials")
		return
	}

	now := time.Now()
	updates := map[string]interface{}{"last_login_at": now}
	if !admin.HasHashedPassword() {
		if err := admin.SetPassword(req.Password); err == nil {
			updates["password"] = admin.Password
			h.Log.Info().Str("username", admin.Username).Msg("legacy password upgraded to bcrypt")
		}
	}
	if err := db.Model(&admin).Updates(updates).Error; err != nil {
		h.Log.Warn().Err(err).Str("username", admin.Username).Msg("could not record login")
	}
	admin.LastLoginAt = &now

	accessToken, refreshToken, ok := h.issueTokens(c, &admin)
	if !ok {
		return
	}

	h.Metrics.LoginAttempt(true)
	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         admin.Sanitize(),
	})
}

// issueTokens signs a token pair, stores the refresh token and sets its cookie.
// It writes the error response itself and reports false on failure.
func (h *AuthHandler) issueTokens(c *gin.Context, admin *models.Admin) (string, string, bool) {
	accessToken, refreshToken, err := utils.GenerateTokens(admin, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate tokens", err)
		return "", "", false
	}

	stored := models.RefreshToken{
		AdminID:   admin.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&stored).Error; err != nil {
		utils.InternalServerError(c, "Failed to store refresh token", err)
		return "", "", false
	}

	h.setRefreshCookie(c, refreshToken, h.Cfg.JWTRefreshExpirationHours*60*60)
	return accessToken, refreshToken, true
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(refreshCookie, value, maxAge, "/", "", h.Cfg.IsProduction(), true)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshTokenFrom prefers the HTTP-only cookie and falls back to the body.
func refreshTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookie); err == nil && token != "" {
		return token
	}
	var req RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	return req.RefreshToken
}

// RefreshToken rotates the refresh token and issues a new access token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	claims, err := utils.ValidateToken(token, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid or expired refresh token")
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var stored models.RefreshToken
	err = db.Where("token = ? AND admin_id = ? AND is_revoked = ? AND expires_at > ?",
		token, claims.UserID, false, time.Now()).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Database error checking refresh token", err)
		return
	}

	var admin models.Admin
	if err := db.First(&admin, "id = ?", claims.UserID).Error; err != nil {
		utils.Unauthorized(c, "Admin account no longer exists")
		return
	}

	if err := db.Model(&stored).Update("is_revoked", true).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token", err)
		return
	}

	accessToken, refreshToken, ok := h.issueTokens(c, &admin)
	if !ok {
		return
	}
	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Logout revokes the refresh token, if one was presented, and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token != "" {
		err := h.DB.WithContext(c.Request.Context()).
			Model(&models.RefreshToken{}).
			Where("token = ? AND is_revoked = ?", token, false).
			Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()}).Error
		if err != nil {
			utils.InternalServerError(c, "Failed to revoke refresh token", err)
			return
		}
	}

	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Logout successful", nil)
}

// VerifiedUser is the identity carried by a valid access token.
type VerifiedUser struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// Verify confirms the access token is valid. AuthMiddleware has already
// rejected anything else.
func (h *AuthHandler) Verify(c *gin.Context) {
	id, _ := middleware.GetUserIDFromContext(c)
	username, _ := middleware.GetUsernameFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	utils.Success(c, "Token is valid", gin.H{
		"valid": true,
		"user":  VerifiedUser{UserID: id, Username: username, Role: role},
	})
}

// UpdatePasswordRequest represents the request body for a password change.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// UpdatePassword changes the signed-in admin's password and revokes their
// outstanding refresh tokens.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	adminID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var admin models.Admin
	if err := db.First(&admin, "id = ?", adminID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error", err)
		}
		return
	}

	if !admin.CheckPassword(req.CurrentPassword) {
		utils.Unauthorized(c, "Incorrect current password")
		return
	}
	if err := admin.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password", err)
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&admin).Update("password", admin.Password).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("admin_id = ? AND is_revoked = ?", admin.ID, false).
			Update("is_revoked", true).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update password", err)
		return
	}

	h.Log.Info().Str("username", admin.Username).Msg("password updated")
	utils.Success(c, "Password updated successfully", nil)
}
