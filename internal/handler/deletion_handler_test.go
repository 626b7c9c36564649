package handler

import (
	"net/http"
	"testing"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/Talalkassab/manfaa-api/pkg/jwtutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeletionRequestOwnerOnly(t *testing.T) {
	f, _ := newAdminFixture(t)
	require.NoError(t, f.db.Create(&model.Business{Title: "X", Status: model.BusinessStatusApproved, OwnerID: 7}).Error)

	rec, c := f.request(t, http.MethodPost, "/api/deletion-requests",
		`{"businessId":1,"reason":"sold"}`, &jwtutil.UserClaims{UserID: 42})
	require.NoError(t, CreateDeletionRequest(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, c = f.request(t, http.MethodPost, "/api/deletion-requests",
		`{"businessId":1,"reason":"sold"}`, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, CreateDeletionRequest(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateDeletionRequestDeduplicates(t *testing.T) {
	f, _ := newAdminFixture(t)
	require.NoError(t, f.db.Create(&model.Business{Title: "X", Status: model.BusinessStatusApproved, OwnerID: 7}).Error)

	rec, c := f.request(t, http.MethodPost, "/api/deletion-requests",
		`{"businessId":1,"reason":"sold"}`, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, CreateDeletionRequest(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// A second submission returns the pending request instead of a new row
	rec, c = f.request(t, http.MethodPost, "/api/deletion-requests",
		`{"businessId":1,"reason":"still sold"}`, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, CreateDeletionRequest(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, f.db.Model(&model.DeletionRequest{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateDeletionRequestUnknownBusiness(t *testing.T) {
	f, _ := newAdminFixture(t)

	rec, c := f.request(t, http.MethodPost, "/api/deletion-requests",
		`{"businessId":99,"reason":"sold"}`, &jwtutil.UserClaims{UserID: 7})
	require.NoError(t, CreateDeletionRequest(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
