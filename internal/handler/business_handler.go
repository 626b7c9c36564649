package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Talalkassab/manfaa-api/internal/assembler"
	"github.com/Talalkassab/manfaa-api/internal/filemeta"
	"github.com/Talalkassab/manfaa-api/internal/mapping"
	"github.com/Talalkassab/manfaa-api/internal/middleware"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/storage"
	"github.com/Talalkassab/manfaa-api/pkg/config"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/Talalkassab/manfaa-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SearchIndex is the search backend surface the handlers use. A nil value
// means search is not configured and callers fall back to SQL filtering.
type SearchIndex interface {
	IndexBusiness(biz *model.Business) error
	RemoveBusiness(id uint) error
	SearchIDs(query string, limit, offset int64) ([]uint, int64, error)
}

// BusinessHandler serves the listing CRUD surface
type BusinessHandler struct {
	assembler  *assembler.Assembler
	store      storage.ObjectStore
	meta       *filemeta.Store
	search     SearchIndex // nil when search is not configured
	storageCfg *config.StorageConfig
	maxUpload  int64
}

func NewBusinessHandler(asm *assembler.Assembler, store storage.ObjectStore, meta *filemeta.Store,
	searchClient SearchIndex, storageCfg *config.StorageConfig, maxUpload int64) *BusinessHandler {
	return &BusinessHandler{
		assembler:  asm,
		store:      store,
		meta:       meta,
		search:     searchClient,
		storageCfg: storageCfg,
		maxUpload:  maxUpload,
	}
}

// listResponse is the pagination envelope
type listResponse struct {
	Businesses []businessListItem `json:"businesses"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

type businessListItem struct {
	model.Business
	StatusBadge string `json:"status_badge,omitempty"`
}

// List returns a filtered, paginated business list. Anyone sees approved
// listings; owners see their own regardless of status; admins see all.
func (h *BusinessHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)

	page := 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	limit := defaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= maxPageSize {
		limit = v
	}

	q := database.GetDB().Model(&model.Business{})

	if category := c.QueryParam("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if location := c.QueryParam("location"); location != "" {
		q = q.Where("location ILIKE ?", "%"+location+"%")
	}

	ownScope := false
	if userIDStr := c.QueryParam("userId"); userIDStr != "" {
		userID, err := strconv.ParseUint(userIDStr, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid userId"})
		}
		q = q.Where("owner_id = ?", uint(userID))
		ownScope = claims != nil && claims.UserID == uint(userID)
	}

	isAdmin := claims != nil && claims.IsAdmin()
	if status := c.QueryParam("status"); status != "" && (isAdmin || ownScope) {
		q = q.Where("status = ?", status)
	} else if !isAdmin && !ownScope {
		// Public browsing only sees approved listings
		q = q.Where("status = ?", model.BusinessStatusApproved)
	}

	// The search backend pages and counts itself; its total is the number
	// of matches, not the size of the page of ids it handed back.
	var total int64
	searchPaged := false
	if searchTerm := c.QueryParam("search"); searchTerm != "" {
		if ids, searchTotal, ok := h.searchIDs(c, searchTerm, page, limit); ok {
			searchPaged = true
			total = searchTotal
			if len(ids) == 0 {
				return c.JSON(http.StatusOK, listResponse{Businesses: []businessListItem{}, Total: total, Page: page, Limit: limit})
			}
			q = q.Where("id IN ?", ids)
		} else {
			pattern := "%" + searchTerm + "%"
			q = q.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
		}
	}

	if !searchPaged {
		if err := q.Count(&total).Error; err != nil {
			if database.IsUndefinedTable(err) {
				return c.JSON(http.StatusOK, listResponse{Businesses: []businessListItem{}, Page: page, Limit: limit})
			}
			log.Error("Failed to count businesses", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch businesses"})
		}
	}

	query := q.Order("created_at desc")
	if !searchPaged {
		query = query.Limit(limit).Offset((page - 1) * limit)
	}

	var businesses []model.Business
	defer prometheus.TrackDBOperation("query")(time.Now())
	err := query.Find(&businesses).Error
	if err != nil {
		log.Error("Failed to fetch businesses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch businesses"})
	}

	items := make([]businessListItem, 0, len(businesses))
	for _, b := range businesses {
		items = append(items, businessListItem{Business: b, StatusBadge: statusBadge(&b)})
	}

	return c.JSON(http.StatusOK, listResponse{
		Businesses: items,
		Total:      total,
		Page:       page,
		Limit:      limit,
	})
}

// searchIDs asks the search backend for one page of matching ids and its
// total hit count; ok is false when search is unconfigured or unreachable
// so the caller can fall back to SQL.
func (h *BusinessHandler) searchIDs(c echo.Context, term string, page, limit int) ([]uint, int64, bool) {
	if h.search == nil {
		return nil, 0, false
	}
	ids, total, err := h.search.SearchIDs(term, int64(limit), int64((page-1)*limit))
	if err != nil {
		logger.FromContext(c).Warn("Search backend unavailable, falling back to SQL",
			zap.Error(err))
		return nil, 0, false
	}
	return ids, total, true
}

// statusBadge derives the badge shown on listing cards
func statusBadge(b *model.Business) string {
	switch b.Status {
	case model.BusinessStatusPending:
		return "pending review"
	case model.BusinessStatusRejected:
		return "rejected"
	}
	if time.Since(b.CreatedAt) < 7*24*time.Hour {
		return "new"
	}
	return ""
}

// inlineFile is a file payload embedded in the create request
type inlineFile struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Data        string `json:"data"` // base64, optionally a data: URL
	Visibility  string `json:"visibility"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// fileResult reports per-file upload success or failure
type fileResult struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket,omitempty"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Create creates a listing from a camelCase form payload with optional
// inline file payloads. Files go to the primary bucket, falling back to
// the backup bucket; the metadata row records whichever location took the
// upload.
func (h *BusinessHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var form map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var files []inlineFile
	if rawFiles, ok := form["files"]; ok {
		raw, err := json.Marshal(rawFiles)
		if err == nil {
			_ = json.Unmarshal(raw, &files)
		}
		delete(form, "files")
	}
	// Server-assigned fields never come from the form
	delete(form, "ownerId")
	delete(form, "status")

	biz, err := mapping.ToBusiness(form)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	biz.OwnerID = claims.UserID
	biz.Status = model.BusinessStatusPending

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(biz).Error; err != nil {
		log.Error("Failed to create business", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "business creation failed"})
	}
	prometheus.RecordBusinessOperation("create")

	results := h.uploadFiles(c, biz, files)

	log.Info("Business created",
		zap.Uint("id", biz.ID),
		zap.Uint("owner_id", biz.OwnerID),
		zap.Int("files", len(files)))

	return c.JSON(http.StatusCreated, echo.Map{
		"business": biz,
		"files":    results,
	})
}

func (h *BusinessHandler) uploadFiles(c echo.Context, biz *model.Business, files []inlineFile) []fileResult {
	log := logger.FromContext(c)
	ctx := c.Request().Context()
	claims := middleware.ClaimsFrom(c)

	results := make([]fileResult, 0, len(files))
	for _, f := range files {
		res := fileResult{Name: f.Name}
		if f.Name == "" {
			res.Error = "file name is required"
			results = append(results, res)
			continue
		}

		data, err := decodeFileData(f.Data)
		if err != nil {
			res.Error = "invalid file data"
			results = append(results, res)
			continue
		}
		if int64(len(data)) > h.maxUpload {
			res.Error = "file too large"
			results = append(results, res)
			continue
		}

		path := fmt.Sprintf("businesses/%d/%s", biz.ID, f.Name)
		bucket := h.storageCfg.PrimaryBucket
		err = h.store.Upload(ctx, bucket, path, data, f.Type, false)
		if err != nil {
			prometheus.RecordUpload(bucket, "failed")
			log.Warn("Primary bucket upload failed, trying backup",
				zap.String("bucket", bucket),
				zap.String("path", path),
				zap.Error(err))

			bucket = h.storageCfg.BackupBucket
			if err = h.store.Upload(ctx, bucket, path, data, f.Type, false); err != nil {
				prometheus.RecordUpload(bucket, "failed")
				log.Error("Backup bucket upload failed",
					zap.String("bucket", bucket),
					zap.String("path", path),
					zap.Error(err))
				res.Error = "upload failed"
				results = append(results, res)
				continue
			}
			prometheus.RecordUpload(bucket, "fallback")
		} else {
			prometheus.RecordUpload(bucket, "ok")
		}

		vis := model.Visibility(f.Visibility)
		if !vis.Known() {
			vis = model.VisibilityPrivate
		}
		category := model.FileCategory(f.Category)
		if category == "" {
			category = filemeta.InferCategory(f.Name, f.Type)
		}

		meta := &model.BusinessFile{
			BusinessID:  biz.ID,
			Bucket:      bucket,
			FilePath:    path,
			FileName:    f.Name,
			FileType:    f.Type,
			FileSize:    int64(len(data)),
			Visibility:  vis,
			Category:    category,
			Description: f.Description,
			UploadedBy:  claims.UserID,
		}
		if err := h.meta.Upsert(meta); err != nil {
			// The object is in storage; reads will reconcile it later
			log.Warn("Failed to record file metadata",
				zap.String("path", path), zap.Error(err))
		}

		res.Bucket = bucket
		res.Path = path
		results = append(results, res)
	}
	return results
}

// Get returns the assembled business view. Unapproved listings exist only
// for their owner and admins.
func (h *BusinessHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business ID"})
	}

	var requesterID *uint
	if claims != nil {
		requesterID = &claims.UserID
	}

	view, err := h.assembler.Assemble(c.Request().Context(), uint(id), requesterID)
	if err != nil {
		if database.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
		}
		log.Error("Failed to assemble business", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch business"})
	}

	if !view.IsApproved() {
		isOwner := claims != nil && claims.UserID == view.OwnerID
		if !isOwner && (claims == nil || !claims.IsAdmin()) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
		}
	}

	return c.JSON(http.StatusOK, view)
}

// Update applies mapped form fields to a listing. Owner only; the owner
// reference itself is immutable.
func (h *BusinessHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business ID"})
	}

	var biz model.Business
	if err := database.GetDB().First(&biz, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
	}
	if biz.OwnerID != claims.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the owner may edit this listing"})
	}

	var form map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	delete(form, "ownerId")
	delete(form, "status")

	if err := mapping.Apply(&biz, form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Save(&biz).Error; err != nil {
		log.Error("Failed to update business", zap.Uint("id", biz.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update business"})
	}
	prometheus.RecordBusinessOperation("update")

	if h.search != nil && biz.IsApproved() {
		if err := h.search.IndexBusiness(&biz); err != nil {
			log.Warn("Failed to reindex business", zap.Uint("id", biz.ID), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, biz)
}

// decodeFileData accepts raw base64 or a data: URL
func decodeFileData(data string) ([]byte, error) {
	if idx := strings.Index(data, ";base64,"); idx >= 0 && strings.HasPrefix(data, "data:") {
		data = data[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(data)
}
