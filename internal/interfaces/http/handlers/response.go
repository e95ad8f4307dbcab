// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/product"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"github.com/your-org/beauty-store-backend/internal/domain/welcomegift"
	"github.com/your-org/beauty-store-backend/internal/pkg/auth"
)

// Response is the envelope every endpoint returns
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins, so wrapped causes that are also
// sentinels (ErrInvalidCart wrapping ErrProductNotFound) must come first.
var errorMappings = []errorMapping{
	{welcomegift.ErrInvalidAnonymousID, http.StatusBadRequest, "INVALID_SESSION"},
	{welcomegift.ErrInvalidSession, http.StatusUnauthorized, "INVALID_SESSION"},
	{welcomegift.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{welcomegift.ErrInvalidCart, http.StatusBadRequest, "INVALID_CART"},
	{welcomegift.ErrCartMismatch, http.StatusBadRequest, "CART_TOTAL_MISMATCH"},
	{welcomegift.ErrMinOrderNotMet, http.StatusBadRequest, "MIN_ORDER_NOT_MET"},
	{welcomegift.ErrInsufficientItems, http.StatusBadRequest, "INSUFFICIENT_ITEMS"},
	{welcomegift.ErrGiftInactive, http.StatusBadRequest, "GIFT_INACTIVE"},
	{welcomegift.ErrGiftNotFound, http.StatusNotFound, "GIFT_NOT_FOUND"},
	{welcomegift.ErrGiftNotClaimed, http.StatusNotFound, "GIFT_NOT_CLAIMED"},
	{welcomegift.ErrNoUnusedReward, http.StatusNotFound, "NO_UNUSED_REWARD"},
	{welcomegift.ErrDuplicateOrder, http.StatusConflict, "DUPLICATE_ORDER"},
	{welcomegift.ErrDuplicateCouponCode, http.StatusConflict, "DUPLICATE_COUPON_CODE"},
	{welcomegift.ErrAlreadyClaimed, http.StatusConflict, "ALREADY_CLAIMED"},
	{welcomegift.ErrAlreadyRedeemed, http.StatusConflict, "ALREADY_REDEEMED"},
	{welcomegift.ErrGiftHasClaims, http.StatusConflict, "GIFT_HAS_CLAIMS"},
	{welcomegift.ErrRewardAlreadyUsed, http.StatusConflict, "REWARD_ALREADY_USED"},

	{user.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{user.ErrPasswordMismatch, http.StatusBadRequest, "PASSWORD_MISMATCH"},
	{user.ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD"},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{user.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},

	{product.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{product.ErrVariantNotFound, http.StatusNotFound, "VARIANT_NOT_FOUND"},
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

func respondFail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message, Code: code})
}

// respondError maps err onto the envelope. Unknown errors become a generic 500
// and are logged with the request id.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondFail(c, m.status, m.code, err.Error())
			return
		}
	}

	log.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
	}).Error("request failed")
	respondFail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong, please try again")
}

// respondBindError reports a request body that gin could not bind or validate.
func respondBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		respondFail(c, http.StatusBadRequest, "INVALID_INPUT",
			"Invalid request data: "+fe.Field()+" failed "+fe.Tag()+" validation")
		return
	}
	respondFail(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid request data: "+err.Error())
}
