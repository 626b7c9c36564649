package nda

import (
	"testing"
	"time"

	"github.com/Talalkassab/manfaa-api/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestAccessor(t *testing.T) *Accessor {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.NDA{}))
	return NewAccessor(db)
}

func TestSignCreatesPending(t *testing.T) {
	a := newTestAccessor(t)

	signed, err := a.Sign(3, 42, 7, "standard terms", 0)
	require.NoError(t, err)
	assert.Equal(t, model.NDAStatusPending, signed.Status)
	assert.Equal(t, DefaultValidityDays, signed.ValidityDays)
	assert.Nil(t, signed.ExpiresAt)

	ok, err := a.HasApproved(3, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignOwnerAutoApproves(t *testing.T) {
	a := newTestAccessor(t)

	signed, err := a.Sign(3, 7, 7, "", 30)
	require.NoError(t, err)
	assert.Equal(t, model.NDAStatusApproved, signed.Status)
	require.NotNil(t, signed.ExpiresAt)

	ok, err := a.HasApproved(3, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignApprovedReturnsAsIs(t *testing.T) {
	a := newTestAccessor(t)

	first, err := a.Sign(3, 7, 7, "", 30)
	require.NoError(t, err)

	again, err := a.Sign(3, 7, 7, "new terms", 90)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, model.NDAStatusApproved, again.Status)
	// The approved NDA is untouched by the re-sign attempt
	assert.NotEqual(t, "new terms", again.Terms)
}

func TestSignRejectedPairCannotResign(t *testing.T) {
	a := newTestAccessor(t)

	signed, err := a.Sign(3, 42, 7, "", 0)
	require.NoError(t, err)
	_, err = a.Resolve(signed.ID, false)
	require.NoError(t, err)

	_, err = a.Sign(3, 42, 7, "", 0)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestResolveApprove(t *testing.T) {
	a := newTestAccessor(t)

	signed, err := a.Sign(3, 42, 7, "", 60)
	require.NoError(t, err)

	resolved, err := a.Resolve(signed.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.NDAStatusApproved, resolved.Status)
	require.NotNil(t, resolved.ExpiresAt)

	ok, err := a.HasApproved(3, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveTerminalStates(t *testing.T) {
	a := newTestAccessor(t)

	signed, err := a.Sign(3, 42, 7, "", 0)
	require.NoError(t, err)
	_, err = a.Resolve(signed.ID, true)
	require.NoError(t, err)

	// Approved cannot flip to rejected, or be re-approved
	_, err = a.Resolve(signed.ID, false)
	assert.ErrorIs(t, err, ErrTerminal)
	_, err = a.Resolve(signed.ID, true)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestHasApprovedExpired(t *testing.T) {
	a := newTestAccessor(t)

	signed, err := a.Sign(3, 42, 7, "", 30)
	require.NoError(t, err)
	_, err = a.Resolve(signed.ID, true)
	require.NoError(t, err)

	// Wind the clock past the expiry
	a.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }

	ok, err := a.HasApproved(3, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignPendingRefreshesTerms(t *testing.T) {
	a := newTestAccessor(t)

	first, err := a.Sign(3, 42, 7, "v1", 0)
	require.NoError(t, err)

	second, err := a.Sign(3, 42, 7, "v2", 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "v2", second.Terms)
	assert.Equal(t, model.NDAStatusPending, second.Status)
}
