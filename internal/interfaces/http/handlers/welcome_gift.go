// internal/interfaces/http/handlers/welcome_gift.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/welcomegift"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http/middleware"
)

// AnonymousIssuer issues signed anonymous visitor ids
type AnonymousIssuer interface {
	Generate() (string, error)
}

// WelcomeGiftHandler serves the public, customer and admin welcome-gift endpoints
type WelcomeGiftHandler struct {
	service *welcomegift.Service
	issuer  AnonymousIssuer
	log     *logrus.Logger
}

// NewWelcomeGiftHandler creates a new welcome gift handler
func NewWelcomeGiftHandler(service *welcomegift.Service, issuer AnonymousIssuer, log *logrus.Logger) *WelcomeGiftHandler {
	return &WelcomeGiftHandler{service: service, issuer: issuer, log: log}
}

type anonymousBody struct {
	AnonymousID string `json:"anonymousId"`
}

// bindOptionalJSON binds the body when there is one. An empty body is not an error.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func giftIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondFail(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid gift ID")
		return 0, false
	}
	return uint(id), true
}

// identityFrom prefers the authenticated user over any anonymous id.
func identityFrom(c *gin.Context, anonymousID string) welcomegift.Identity {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return welcomegift.Identity{UserID: &userID}
	}
	return welcomegift.Identity{AnonymousID: anonymousID}
}

// IssueAnonymousID returns a fresh signed anonymous visitor id
func (h *WelcomeGiftHandler) IssueAnonymousID(c *gin.Context) {
	id, err := h.issuer.Generate()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Anonymous ID issued", gin.H{"anonymousId": id})
}

// ListActive lists gifts shown in the welcome popup
func (h *WelcomeGiftHandler) ListActive(c *gin.Context) {
	gifts, err := h.service.ListActiveGifts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gifts retrieved successfully", gifts)
}

// Claim claims a gift for the signed-in user or the anonymous visitor
func (h *WelcomeGiftHandler) Claim(c *gin.Context) {
	giftID, ok := giftIDParam(c)
	if !ok {
		return
	}

	var body anonymousBody
	if err := bindOptionalJSON(c, &body); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.service.ClaimGift(c.Request.Context(), giftID, identityFrom(c, body.AnonymousID))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Welcome gift claimed successfully", result)
}

// CheckEligibility reports whether the popup should be shown. It always answers 200.
func (h *WelcomeGiftHandler) CheckEligibility(c *gin.Context) {
	who := identityFrom(c, c.Query("anonymousId"))
	respondOK(c, http.StatusOK, "Eligibility checked", h.service.CheckEligibility(c.Request.Context(), who))
}

// MigrateAnonymous moves an anonymous claim onto the signed-in user. It always answers 200.
func (h *WelcomeGiftHandler) MigrateAnonymous(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var body anonymousBody
	if err := bindOptionalJSON(c, &body); err != nil {
		respondBindError(c, err)
		return
	}

	result := h.service.MigrateAnonymous(c.Request.Context(), body.AnonymousID, userID)
	respondOK(c, http.StatusOK, result.Message, result)
}

// ValidateCoupon prices the cart server-side and computes the gift discount
func (h *WelcomeGiftHandler) ValidateCoupon(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req welcomegift.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.service.ValidateCoupon(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, result.Reason, result)
}

// MarkUsed redeems the user's unused reward
func (h *WelcomeGiftHandler) MarkUsed(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req welcomegift.MarkUsedRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	reward, err := h.service.MarkUsed(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gift marked as used", reward)
}

// UserRewards lists every reward the signed-in user holds
func (h *WelcomeGiftHandler) UserRewards(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	rewards, err := h.service.ListUserRewards(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "User rewards retrieved successfully", rewards)
}

// Admin endpoints

// AdminList lists all gifts, active or not
func (h *WelcomeGiftHandler) AdminList(c *gin.Context) {
	gifts, err := h.service.ListAllGifts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gifts retrieved successfully", gifts)
}

// AdminGet returns one gift
func (h *WelcomeGiftHandler) AdminGet(c *gin.Context) {
	id, ok := giftIDParam(c)
	if !ok {
		return
	}
	gift, err := h.service.GetGift(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gift retrieved successfully", gift)
}

// AdminCreate creates a gift
func (h *WelcomeGiftHandler) AdminCreate(c *gin.Context) {
	var req welcomegift.CreateGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	gift, err := h.service.CreateGift(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusCreated, "Welcome gift created successfully", gift)
}

// AdminUpdate applies a partial update to a gift
func (h *WelcomeGiftHandler) AdminUpdate(c *gin.Context) {
	id, ok := giftIDParam(c)
	if !ok {
		return
	}

	var req welcomegift.UpdateGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	gift, err := h.service.UpdateGift(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gift updated successfully", gift)
}

// AdminDelete deletes a gift nobody has claimed
func (h *WelcomeGiftHandler) AdminDelete(c *gin.Context) {
	id, ok := giftIDParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteGift(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gift deleted successfully", nil)
}

// AdminToggle flips a gift's active flag
func (h *WelcomeGiftHandler) AdminToggle(c *gin.Context) {
	id, ok := giftIDParam(c)
	if !ok {
		return
	}
	gift, err := h.service.ToggleGift(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	msg := "Welcome gift deactivated"
	if gift.IsActive {
		msg = "Welcome gift activated"
	}
	respondOK(c, http.StatusOK, msg, gift)
}

// AdminReorder assigns new display orders
func (h *WelcomeGiftHandler) AdminReorder(c *gin.Context) {
	var req welcomegift.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	gifts, err := h.service.ReorderGifts(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gifts reordered successfully", gifts)
}

// AdminAnalytics reports claim and redemption figures
func (h *WelcomeGiftHandler) AdminAnalytics(c *gin.Context) {
	report, err := h.service.GetAnalytics(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Welcome gift analytics retrieved successfully", report)
}
