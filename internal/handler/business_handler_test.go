package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Talalkassab/manfaa-api/internal/assembler"
	"github.com/Talalkassab/manfaa-api/internal/filemeta"
	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/internal/nda"
	"github.com/Talalkassab/manfaa-api/internal/storage"
	"github.com/Talalkassab/manfaa-api/pkg/config"
	"github.com/Talalkassab/manfaa-api/pkg/database"
	"github.com/Talalkassab/manfaa-api/pkg/jwtutil"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type bizFixture struct {
	db      *gorm.DB
	store   *storage.MemoryStore
	handler *BusinessHandler
	e       *echo.Echo
}

func newBizFixture(t *testing.T, buckets ...string) *bizFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Business{}, &model.BusinessFile{}, &model.NDA{}, &model.Profile{}))
	database.SetDB(db)

	if len(buckets) == 0 {
		buckets = []string{"business-files", "businesses"}
	}
	store := storage.NewMemoryStore(buckets...)
	resolver := storage.NewResolver(store, []string{"business-files", "businesses"}, zap.NewNop())
	meta := filemeta.NewStore(db, model.VisibilityPrivate)
	ndas := nda.NewAccessor(db)
	asm := assembler.New(db, resolver, meta, ndas, zap.NewNop())

	storageCfg := &config.StorageConfig{
		PrimaryBucket: "business-files",
		BackupBucket:  "businesses",
		Buckets:       []string{"business-files", "businesses"},
	}

	return &bizFixture{
		db:      db,
		store:   store,
		handler: NewBusinessHandler(asm, store, meta, nil, storageCfg, 1<<20),
		e:       echo.New(),
	}
}

func (f *bizFixture) request(t *testing.T, method, target string, body string, claims *jwtutil.UserClaims) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	if claims != nil {
		c.Set("user", claims)
	}
	return rec, c
}

// fakeSearch pages like the real backend: one page of ids, the full hit
// count alongside
type fakeSearch struct {
	ids   []uint
	total int64
}

func (f *fakeSearch) IndexBusiness(*model.Business) error { return nil }
func (f *fakeSearch) RemoveBusiness(uint) error           { return nil }

func (f *fakeSearch) SearchIDs(query string, limit, offset int64) ([]uint, int64, error) {
	ids := f.ids
	if offset < int64(len(ids)) {
		ids = ids[offset:]
	} else {
		ids = nil
	}
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, f.total, nil
}

func TestListSearchReportsBackendTotal(t *testing.T) {
	f := newBizFixture(t)

	var ids []uint
	for i := 0; i < 5; i++ {
		biz := &model.Business{Title: "Bakery", Status: model.BusinessStatusApproved, OwnerID: 7}
		require.NoError(t, f.db.Create(biz).Error)
		ids = append(ids, biz.ID)
	}
	f.handler.search = &fakeSearch{ids: ids, total: 5}

	// One page of a five-hit search still reports the full total
	rec, c := f.request(t, http.MethodGet, "/api/businesses?search=bakery&limit=2", "", nil)
	require.NoError(t, f.handler.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.Total)
	assert.Len(t, resp.Businesses, 2)

	// Later pages keep the total and return their own slice
	rec, c = f.request(t, http.MethodGet, "/api/businesses?search=bakery&limit=2&page=3", "", nil)
	require.NoError(t, f.handler.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.Total)
	assert.Len(t, resp.Businesses, 1)
}

func TestListSearchNoMatches(t *testing.T) {
	f := newBizFixture(t)
	require.NoError(t, f.db.Create(&model.Business{Title: "X", Status: model.BusinessStatusApproved, OwnerID: 7}).Error)
	f.handler.search = &fakeSearch{}

	rec, c := f.request(t, http.MethodGet, "/api/businesses?search=nothing", "", nil)
	require.NoError(t, f.handler.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Businesses)
}

func TestCreateBusinessForcesPendingAndOwner(t *testing.T) {
	f := newBizFixture(t)

	body := `{"title":"Corner Bakery","category":"food","askingPrice":"1,500,000","ownerId":999,"status":"approved"}`
	rec, c := f.request(t, http.MethodPost, "/api/businesses", body, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, f.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var biz model.Business
	require.NoError(t, f.db.First(&biz).Error)
	assert.Equal(t, "Corner Bakery", biz.Title)
	assert.Equal(t, uint(7), biz.OwnerID)
	assert.Equal(t, model.BusinessStatusPending, biz.Status)
	require.NotNil(t, biz.AskingPrice)
	assert.Equal(t, 1500000.0, *biz.AskingPrice)
}

func TestCreateBusinessMissingTitle(t *testing.T) {
	f := newBizFixture(t)

	rec, c := f.request(t, http.MethodPost, "/api/businesses", `{"category":"food"}`, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBusinessWithInlineFiles(t *testing.T) {
	f := newBizFixture(t)

	data := base64.StdEncoding.EncodeToString([]byte("image bytes"))
	body := `{"title":"Corner Bakery","files":[{"name":"logo.png","type":"image/png","data":"` + data + `","visibility":"public"}]}`
	rec, c := f.request(t, http.MethodPost, "/api/businesses", body, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, f.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Business model.Business `json:"business"`
		Files    []fileResult   `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "business-files", resp.Files[0].Bucket)
	assert.Empty(t, resp.Files[0].Error)

	// Object landed in the primary bucket with a metadata row
	obj, err := f.store.Download(c.Request().Context(), "business-files", resp.Files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), obj.Data)

	var meta model.BusinessFile
	require.NoError(t, f.db.Where("file_path = ?", resp.Files[0].Path).First(&meta).Error)
	assert.Equal(t, model.VisibilityPublic, meta.Visibility)
	assert.Equal(t, model.CategoryImages, meta.Category)
	assert.Equal(t, uint(7), meta.UploadedBy)
}

func TestCreateBusinessUploadFallsBackToBackupBucket(t *testing.T) {
	// Primary bucket does not exist in the store at all
	f := newBizFixture(t, "businesses")

	data := base64.StdEncoding.EncodeToString([]byte("x"))
	body := `{"title":"X","files":[{"name":"doc.pdf","type":"application/pdf","data":"` + data + `"}]}`
	rec, c := f.request(t, http.MethodPost, "/api/businesses", body, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, f.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Files []fileResult `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "businesses", resp.Files[0].Bucket)
	assert.Empty(t, resp.Files[0].Error)

	// The metadata row records the bucket that actually took the upload
	var meta model.BusinessFile
	require.NoError(t, f.db.Where("file_path = ?", resp.Files[0].Path).First(&meta).Error)
	assert.Equal(t, "businesses", meta.Bucket)
}

func TestCreateBusinessBadFilePayloads(t *testing.T) {
	f := newBizFixture(t)

	body := `{"title":"X","files":[{"name":"","data":"aGk="},{"name":"bad.bin","data":"not base64!!"}]}`
	rec, c := f.request(t, http.MethodPost, "/api/businesses", body, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, f.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Files []fileResult `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "file name is required", resp.Files[0].Error)
	assert.Equal(t, "invalid file data", resp.Files[1].Error)
}

func TestGetPendingBusinessHiddenFromStrangers(t *testing.T) {
	f := newBizFixture(t)
	biz := &model.Business{Title: "X", Status: model.BusinessStatusPending, OwnerID: 7}
	require.NoError(t, f.db.Create(biz).Error)

	target := "/api/businesses/1"

	rec, c := f.request(t, http.MethodGet, target, "", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.handler.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, c = f.request(t, http.MethodGet, target, "", &jwtutil.UserClaims{UserID: 42})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.handler.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, c = f.request(t, http.MethodGet, target, "", &jwtutil.UserClaims{UserID: 7})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.handler.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, c = f.request(t, http.MethodGet, target, "", &jwtutil.UserClaims{UserID: 42, Role: "admin"})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.handler.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateBusinessOwnerOnly(t *testing.T) {
	f := newBizFixture(t)
	biz := &model.Business{Title: "X", Status: model.BusinessStatusApproved, OwnerID: 7}
	require.NoError(t, f.db.Create(biz).Error)

	rec, c := f.request(t, http.MethodPut, "/api/businesses/1", `{"title":"Y"}`, &jwtutil.UserClaims{UserID: 42})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.handler.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, c = f.request(t, http.MethodPut, "/api/businesses/1", `{"title":"Y","status":"approved","ownerId":42}`, &jwtutil.UserClaims{UserID: 7})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, f.handler.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Business
	require.NoError(t, f.db.First(&updated, 1).Error)
	assert.Equal(t, "Y", updated.Title)
	// The owner reference is immutable through the form
	assert.Equal(t, uint(7), updated.OwnerID)
}
