// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"github.com/your-org/beauty-store-backend/internal/domain/welcomegift"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userService *user.Service
	gifts       *welcomegift.Service
	log         *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *user.Service, gifts *welcomegift.Service, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		gifts:       gifts,
		log:         log,
	}
}

// authResult is the login/register payload. The migration outcome is present
// only when the client sent an anonymous id.
type authResult struct {
	*user.AuthResponse
	WelcomeGiftMigration *welcomegift.MigrationResult `json:"welcome_gift_migration,omitempty"`
}

// withMigration carries an anonymous welcome gift over to the account. It never
// fails the surrounding auth call.
func (h *AuthHandler) withMigration(ctx context.Context, resp *user.AuthResponse, anonymousID string) *authResult {
	result := &authResult{AuthResponse: resp}
	if anonymousID == "" {
		return result
	}

	result.WelcomeGiftMigration = h.gifts.MigrateAnonymous(ctx, anonymousID, resp.User.ID)
	if result.WelcomeGiftMigration.Migrated {
		resp.User.HasClaimedWelcomeGift = true
		resp.User.WelcomeGiftID = &result.WelcomeGiftMigration.Reward.GiftID
	}
	return result
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.userService.Register(&req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.WithField("user_id", response.User.ID).Info("user registered")
	respondOK(c, http.StatusCreated, "User registered successfully",
		h.withMigration(c.Request.Context(), response, req.AnonymousID))
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.userService.Login(&req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Login successful",
		h.withMigration(c.Request.Context(), response, req.AnonymousID))
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.userService.RefreshToken(req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Token refreshed successfully", response)
}

// Logout is client-side for stateless JWTs
func (h *AuthHandler) Logout(c *gin.Context) {
	respondOK(c, http.StatusOK, "Logged out successfully", nil)
}

// GetProfile gets current user profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondFail(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Profile retrieved successfully", profile)
}
