package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Talalkassab/manfaa-api/internal/filemeta"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/storage"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/Talalkassab/manfaa-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminHandler serves the moderation queue: listing approval and deletion
// requests
type AdminHandler struct {
	store  storage.ObjectStore
	meta   *filemeta.Store
	search SearchIndex // nil when search is not configured
}

func NewAdminHandler(store storage.ObjectStore, meta *filemeta.Store, searchClient SearchIndex) *AdminHandler {
	return &AdminHandler{store: store, meta: meta, search: searchClient}
}

// ListBusinesses returns listings filtered by status for the review queue
func (h *AdminHandler) ListBusinesses(c echo.Context) error {
	log := logger.FromContext(c)

	status := c.QueryParam("status")
	if status == "" {
		status = string(model.BusinessStatusPending)
	}

	var businesses []model.Business
	defer prometheus.TrackDBOperation("query")(time.Now())
	err := database.GetDB().
		Where("status = ?", status).
		Order("created_at asc").
		Find(&businesses).Error
	if err != nil {
		log.Error("Failed to fetch review queue", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch businesses"})
	}

	return c.JSON(http.StatusOK, echo.Map{"businesses": businesses})
}

// ApproveBusiness transitions a pending listing to approved and indexes it
func (h *AdminHandler) ApproveBusiness(c echo.Context) error {
	return h.reviewBusiness(c, model.BusinessStatusApproved)
}

// RejectBusiness transitions a pending listing to rejected
func (h *AdminHandler) RejectBusiness(c echo.Context) error {
	return h.reviewBusiness(c, model.BusinessStatusRejected)
}

func (h *AdminHandler) reviewBusiness(c echo.Context, to model.BusinessStatus) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business ID"})
	}

	var biz model.Business
	if err := database.GetDB().First(&biz, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
	}

	// Only pending listings move; approved and rejected are settled
	if biz.Status != model.BusinessStatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "business has already been reviewed"})
	}

	biz.Status = to
	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Save(&biz).Error; err != nil {
		log.Error("Failed to update business status", zap.Uint("id", biz.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update business"})
	}

	if to == model.BusinessStatusApproved {
		prometheus.RecordBusinessOperation("approve")
		if h.search != nil {
			if err := h.search.IndexBusiness(&biz); err != nil {
				log.Warn("Failed to index approved business", zap.Uint("id", biz.ID), zap.Error(err))
			}
		}
	} else {
		prometheus.RecordBusinessOperation("reject")
	}

	h.refreshPendingGauge()

	log.Info("Business reviewed",
		zap.Uint("id", biz.ID),
		zap.String("status", string(biz.Status)))
	return c.JSON(http.StatusOK, biz)
}

// ListDeletionRequests returns the pending deletion queue
func (h *AdminHandler) ListDeletionRequests(c echo.Context) error {
	log := logger.FromContext(c)

	var requests []model.DeletionRequest
	err := database.GetDB().
		Where("status = ?", model.DeletionStatusPending).
		Order("created_at asc").
		Find(&requests).Error
	if err != nil {
		if database.IsUndefinedTable(err) {
			return c.JSON(http.StatusOK, echo.Map{"deletion_requests": []model.DeletionRequest{}})
		}
		log.Error("Failed to fetch deletion requests", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch deletion requests"})
	}

	return c.JSON(http.StatusOK, echo.Map{"deletion_requests": requests})
}

// ResolveDeletionRequest approves or rejects a deletion request. Approval
// deletes the listing, its storage objects and its metadata rows.
func (h *AdminHandler) ResolveDeletionRequest(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request ID"})
	}

	action := c.Param("action")
	if action != "approve" && action != "reject" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action must be approve or reject"})
	}
	approve := action == "approve"

	var dr model.DeletionRequest
	if err := database.GetDB().First(&dr, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "deletion request not found"})
	}
	if dr.Status != model.DeletionStatusPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "deletion request has already been resolved"})
	}

	if !approve {
		dr.Status = model.DeletionStatusRejected
		if err := database.GetDB().Save(&dr).Error; err != nil {
			log.Error("Failed to reject deletion request", zap.Uint("id", dr.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve deletion request"})
		}
		return c.JSON(http.StatusOK, dr)
	}

	h.deleteBusinessFiles(c, dr.BusinessID)

	if err := database.GetDB().Delete(&model.Business{}, dr.BusinessID).Error; err != nil {
		log.Error("Failed to delete business", zap.Uint("business_id", dr.BusinessID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete business"})
	}
	prometheus.RecordBusinessOperation("delete")

	if h.search != nil {
		if err := h.search.RemoveBusiness(dr.BusinessID); err != nil {
			log.Warn("Failed to remove business from search index",
				zap.Uint("business_id", dr.BusinessID), zap.Error(err))
		}
	}

	dr.Status = model.DeletionStatusApproved
	if err := database.GetDB().Save(&dr).Error; err != nil {
		log.Error("Failed to record deletion approval", zap.Uint("id", dr.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve deletion request"})
	}

	log.Info("Deletion request approved",
		zap.Uint("request_id", dr.ID),
		zap.Uint("business_id", dr.BusinessID))
	return c.JSON(http.StatusOK, dr)
}

// deleteBusinessFiles removes every metadata row and storage object for a
// business. Individual failures are logged and skipped; a half-deleted
// file set reconciles away on the next read.
func (h *AdminHandler) deleteBusinessFiles(c echo.Context, businessID uint) {
	log := logger.FromContext(c)
	ctx := c.Request().Context()

	files, err := h.meta.ListForBusiness(businessID)
	if err != nil {
		log.Warn("Failed to list files for deletion",
			zap.Uint("business_id", businessID), zap.Error(err))
		return
	}

	for _, f := range files {
		if err := h.store.Remove(ctx, f.Bucket, f.FilePath); err != nil && err != storage.ErrNotFound {
			log.Warn("Failed to remove storage object",
				zap.String("bucket", f.Bucket),
				zap.String("path", f.FilePath),
				zap.Error(err))
		}
		if err := h.meta.Delete(f.ID); err != nil {
			log.Warn("Failed to delete file metadata",
				zap.Uint("file_id", f.ID), zap.Error(err))
		}
	}
}

// Stats returns moderation queue counts
func (h *AdminHandler) Stats(c echo.Context) error {
	log := logger.FromContext(c)

	stats := echo.Map{}
	var count int64

	for _, status := range []model.BusinessStatus{
		model.BusinessStatusPending,
		model.BusinessStatusApproved,
		model.BusinessStatusRejected,
	} {
		if err := database.GetDB().Model(&model.Business{}).
			Where("status = ?", status).Count(&count).Error; err != nil {
			log.Error("Failed to count businesses", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute stats"})
		}
		stats["businesses_"+string(status)] = count
	}

	if err := database.GetDB().Model(&model.NDA{}).
		Where("status = ?", model.NDAStatusPending).Count(&count).Error; err == nil {
		stats["ndas_pending"] = count
	}
	if err := database.GetDB().Model(&model.DeletionRequest{}).
		Where("status = ?", model.DeletionStatusPending).Count(&count).Error; err == nil {
		stats["deletion_requests_pending"] = count
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) refreshPendingGauge() {
	var count int64
	if err := database.GetDB().Model(&model.Business{}).
		Where("status = ?", model.BusinessStatusPending).Count(&count).Error; err == nil {
		prometheus.PendingBusinessesGauge.Set(float64(count))
	}
}
