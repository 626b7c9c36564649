package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Talalkassab/manfaa-api/internal/filemeta"
	"github.com/Talalkassab/manfaa-api/internal/middleware"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/nda"
	"github.com/Talalkassab/manfaa-api/internal/storage"
	"github.com/Talalkassab/manfaa-api/internal/visibility"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/Talalkassab/manfaa-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Resolved files are immutable at a given path, so clients may cache hard
const cacheHeader = "public, max-age=31536000"

// FileHandler serves protected file streaming and metadata edits
type FileHandler struct {
	resolver   *storage.Resolver
	meta       *filemeta.Store
	ndas       *nda.Accessor
	store      storage.ObjectStore
	defaultVis model.Visibility
}

func NewFileHandler(resolver *storage.Resolver, meta *filemeta.Store, ndas *nda.Accessor,
	store storage.ObjectStore, defaultVis model.Visibility) *FileHandler {
	if !defaultVis.Known() {
		defaultVis = model.VisibilityPrivate
	}
	return &FileHandler{resolver: resolver, meta: meta, ndas: ndas, store: store, defaultVis: defaultVis}
}

// Serve streams a file after the visibility check. The requested bucket is
// tried first, then the remaining buckets; only total exhaustion is a 404.
func (h *FileHandler) Serve(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)

	bucket := c.Param("bucket")
	path, err := url.PathUnescape(c.Param("*"))
	if err != nil || path == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid file path"})
	}

	var requesterID *uint
	if claims != nil {
		requesterID = &claims.UserID
	}

	vis, businessID, ownerID, err := h.fileAccessInputs(c, path)
	if err != nil {
		log.Error("Failed to resolve file access inputs",
			zap.String("path", path), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check file access"})
	}

	hasNDA := false
	if requesterID != nil && businessID != 0 {
		ok, ndaErr := h.ndas.HasApproved(businessID, *requesterID)
		if ndaErr != nil {
			log.Warn("NDA lookup failed, treating as unsigned",
				zap.Uint("business_id", businessID), zap.Error(ndaErr))
		}
		hasNDA = ok
	}

	decision := visibility.CanAccess(requesterID, vis, ownerID, hasNDA)
	if !decision.Allowed {
		prometheus.RecordFileAccess(decision.Reason)
		log.Info("File access denied",
			zap.String("bucket", bucket),
			zap.String("path", path),
			zap.String("reason", decision.Reason))
		return c.JSON(http.StatusForbidden, echo.Map{"error": decision.Reason})
	}
	prometheus.RecordFileAccess("allowed")

	resolved, err := h.resolver.ResolvePath(c.Request().Context(), bucket, path)
	if err != nil {
		prometheus.RecordResolverLookup("miss")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
	}
	prometheus.RecordResolverLookup("found")

	contentType := resolved.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set("Cache-Control", cacheHeader)
	return c.Blob(http.StatusOK, contentType, resolved.Data)
}

// fileAccessInputs gathers the policy inputs for a path: the file's
// visibility tier, the owning business, and its owner. With no metadata
// row the configured default visibility applies and the business is
// parsed from the path convention. An undetermined owner fails closed.
func (h *FileHandler) fileAccessInputs(c echo.Context, path string) (model.Visibility, uint, uint, error) {
	vis := h.defaultVis
	var businessID uint

	meta, err := h.meta.FindByPath(path)
	if err != nil {
		return vis, 0, 0, err
	}
	if meta != nil {
		vis = meta.Visibility
		businessID = meta.BusinessID
	} else if id, ok := businessIDFromPath(path); ok {
		businessID = id
	}

	var ownerID uint
	if businessID != 0 {
		var biz model.Business
		if err := database.GetDB().First(&biz, businessID).Error; err != nil {
			if !database.IsNotFound(err) {
				return vis, businessID, 0, err
			}
			// Orphaned file: no owner to match, policy falls through to
			// public-only access
		} else {
			ownerID = biz.OwnerID
		}
	}
	return vis, businessID, ownerID, nil
}

// UpdateMetadata edits a file's visibility, category or description.
// Business owner only.
func (h *FileHandler) UpdateMetadata(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	meta, biz, status, errMsg := h.ownedFile(c, claims.UserID)
	if errMsg != "" {
		return c.JSON(status, echo.Map{"error": errMsg})
	}

	var req struct {
		Visibility  *string `json:"visibility"`
		Category    *string `json:"category"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Visibility != nil {
		vis := model.Visibility(*req.Visibility)
		if !vis.Known() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown visibility tier"})
		}
		meta.Visibility = vis
	}
	if req.Category != nil {
		meta.Category = model.FileCategory(*req.Category)
	}
	if req.Description != nil {
		meta.Description = *req.Description
	}

	if err := h.meta.Upsert(meta); err != nil {
		log.Error("Failed to update file metadata",
			zap.Uint("file_id", meta.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update file"})
	}

	log.Info("File metadata updated",
		zap.Uint("file_id", meta.ID),
		zap.Uint("business_id", biz.ID))
	return c.JSON(http.StatusOK, meta)
}

// Delete removes a file: the storage object and the metadata row. A
// missing storage object still clears the row, since storage decides
// existence and the row is stale.
func (h *FileHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	meta, _, status, errMsg := h.ownedFile(c, claims.UserID)
	if errMsg != "" {
		return c.JSON(status, echo.Map{"error": errMsg})
	}

	err := h.store.Remove(c.Request().Context(), meta.Bucket, meta.FilePath)
	if err != nil && err != storage.ErrNotFound {
		log.Error("Failed to remove storage object",
			zap.String("bucket", meta.Bucket),
			zap.String("path", meta.FilePath),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete file"})
	}

	if err := h.meta.Delete(meta.ID); err != nil {
		log.Error("Failed to delete file metadata",
			zap.Uint("file_id", meta.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete file"})
	}

	log.Info("File deleted",
		zap.Uint("file_id", meta.ID),
		zap.String("bucket", meta.Bucket),
		zap.String("path", meta.FilePath))
	return c.JSON(http.StatusOK, echo.Map{"message": "file deleted"})
}

// ownedFile loads the file from the :id param and checks the caller owns
// the business it belongs to
func (h *FileHandler) ownedFile(c echo.Context, userID uint) (*model.BusinessFile, *model.Business, int, string) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, nil, http.StatusBadRequest, "invalid file ID"
	}

	meta, err := h.meta.FindByID(uint(id))
	if err != nil {
		return nil, nil, http.StatusNotFound, "file not found"
	}

	var biz model.Business
	if err := database.GetDB().First(&biz, meta.BusinessID).Error; err != nil {
		return nil, nil, http.StatusNotFound, "business not found"
	}
	if biz.OwnerID != userID {
		return nil, nil, http.StatusForbidden, "only the business owner may manage this file"
	}
	return meta, &biz, 0, ""
}

// businessIDFromPath extracts the owning business from the historical path
// conventions "businesses/{id}/..." and "{id}/..."
func businessIDFromPath(path string) (uint, bool) {
	parts := strings.Split(path, "/")
	if len(parts) >= 2 && parts[0] == "businesses" {
		if id, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
			return uint(id), true
		}
		return 0, false
	}
	if len(parts) >= 2 {
		if id, err := strconv.ParseUint(parts[0], 10, 32); err == nil {
			return uint(id), true
		}
	}
	return 0, false
}
