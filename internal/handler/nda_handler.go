package handler

import (
	"net/http"
	"strconv"

	"github.com/Talalkassab/manfaa-api/internal/middleware"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/nda"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/Talalkassab/manfaa-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NDAHandler serves NDA signing and approval
type NDAHandler struct {
	ndas *nda.Accessor
}

func NewNDAHandler(ndas *nda.Accessor) *NDAHandler {
	return &NDAHandler{ndas: ndas}
}

// List returns the caller's NDAs, optionally scoped to one business
func (h *NDAHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var businessID *uint
	if bidStr := c.QueryParam("businessId"); bidStr != "" {
		bid, err := strconv.ParseUint(bidStr, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid businessId"})
		}
		b := uint(bid)
		businessID = &b
	}

	ndas, err := h.ndas.ListForUser(claims.UserID, businessID)
	if err != nil {
		if database.IsUndefinedTable(err) {
			// Installations without the NDA migration get an empty list
			return c.JSON(http.StatusOK, echo.Map{"ndas": []model.NDA{}})
		}
		log.Error("Failed to list NDAs", zap.String("table", "ndas"), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list NDAs"})
	}

	return c.JSON(http.StatusOK, echo.Map{"ndas": ndas})
}

// Sign creates or refreshes the caller's NDA for a business. Owners are
// approved on the spot; everyone else waits for the seller.
func (h *NDAHandler) Sign(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		BusinessID     uint   `json:"businessId"`
		Terms          string `json:"terms"`
		ValidityPeriod int    `json:"validityPeriod"`
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

	signed, err := h.ndas.Sign(biz.ID, claims.UserID, biz.OwnerID, req.Terms, req.ValidityPeriod)
	if err != nil {
		if err == nda.ErrRejected {
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		}
		if database.IsUndefinedTable(err) {
			prometheus.RecordError("schema_drift")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "NDAs are not available: ndas table missing, run migrations"})
		}
		log.Error("Failed to sign NDA",
			zap.Uint("business_id", biz.ID),
			zap.Uint("user_id", claims.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign NDA"})
	}

	if signed.Status == model.NDAStatusApproved && claims.UserID == biz.OwnerID {
		prometheus.RecordNDAOperation("auto_approve")
	} else {
		prometheus.RecordNDAOperation("sign")
	}

	log.Info("NDA signed",
		zap.Uint("business_id", biz.ID),
		zap.Uint("user_id", claims.UserID),
		zap.String("status", string(signed.Status)))
	return c.JSON(http.StatusCreated, signed)
}

// Resolve approves or rejects a pending NDA. Allowed for the business
// owner and admins; both outcomes are final.
func (h *NDAHandler) Resolve(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid NDA ID"})
	}

	var req struct {
		Action string `json:"action"` // "approve" or "reject"
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Action != "approve" && req.Action != "reject" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action must be approve or reject"})
	}

	existing, err := h.ndas.FindByID(uint(id))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "NDA not found"})
	}

	var biz model.Business
	if err := database.GetDB().First(&biz, existing.BusinessID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
	}
	if biz.OwnerID != claims.UserID && !claims.IsAdmin() {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the business owner may resolve this NDA"})
	}

	resolved, err := h.ndas.Resolve(uint(id), req.Action == "approve")
	if err != nil {
		if err == nda.ErrTerminal {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to resolve NDA", zap.Uint64("nda_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve NDA"})
	}

	prometheus.RecordNDAOperation(req.Action)
	log.Info("NDA resolved",
		zap.Uint64("nda_id", id),
		zap.String("status", string(resolved.Status)))
	return c.JSON(http.StatusOK, resolved)
}
