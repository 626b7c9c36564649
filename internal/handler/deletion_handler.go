package handler

import (
	"net/http"

	"github.com/Talalkassab/manfaa-api/internal/middleware"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/Talalkassab/manfaa-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateDeletionRequest lets a business owner ask for their listing to be
// taken down. Only the owner may submit; the request lands in the admin
// queue as pending.
func CreateDeletionRequest(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		BusinessID uint   `json:"businessId"`
		Reason     string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.BusinessID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "businessId is required"})
	}

	var biz model.Business
	if err := database.GetDB().First(&biz, req.BusinessID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
	}

	if biz.OwnerID != claims.UserID {
		log.Warn("Deletion request by non-owner",
			zap.Uint("business_id", biz.ID),
			zap.Uint("user_id", claims.UserID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the business owner may request deletion"})
	}

	// One pending request per business is enough
	var existing model.DeletionRequest
	err := database.GetDB().
		Where("business_id = ? AND status = ?", biz.ID, model.DeletionStatusPending).
		First(&existing).Error
	if err == nil {
		return c.JSON(http.StatusOK, existing)
	}

	dr := model.DeletionRequest{
		BusinessID: biz.ID,
		Reason:     req.Reason,
		Status:     model.DeletionStatusPending,
	}
	if err := database.GetDB().Create(&dr).Error; err != nil {
		if database.IsUndefinedTable(err) {
			prometheus.RecordError("schema_drift")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "deletion requests are not available: deletion_requests table missing, run migrations"})
		}
		log.Error("Failed to create deletion request", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create deletion request"})
	}

	log.Info("Deletion request created",
		zap.Uint("business_id", biz.ID),
		zap.Uint("request_id", dr.ID))
	return c.JSON(http.StatusCreated, dr)
}
