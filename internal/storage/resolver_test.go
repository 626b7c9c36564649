package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testBuckets = []string{"business-files", "businesses", "documents"}

func newTestResolver() (*Resolver, *MemoryStore) {
	store := NewMemoryStore(testBuckets...)
	return NewResolver(store, testBuckets, zap.NewNop()), store
}

func TestDefaultStrategiesOrder(t *testing.T) {
	strategies := DefaultStrategies(testBuckets)
	require.Len(t, strategies, len(testBuckets)*4)

	// All conventions of the first bucket come before any of the second
	assert.Equal(t, "business-files", strategies[0].Bucket)
	assert.Equal(t, "business-files", strategies[3].Bucket)
	assert.Equal(t, "businesses", strategies[4].Bucket)

	// Convention order within a bucket
	assert.Equal(t, "businesses/3/report.pdf", strategies[0].Path(3, "report.pdf"))
	assert.Equal(t, "businesses/3/documents/report.pdf", strategies[1].Path(3, "report.pdf"))
	assert.Equal(t, "3/report.pdf", strategies[2].Path(3, "report.pdf"))
	assert.Equal(t, "report.pdf", strategies[3].Path(3, "report.pdf"))
}

func TestResolveFirstFoundWins(t *testing.T) {
	resolver, store := newTestResolver()
	ctx := context.Background()

	// The same logical file in two locations; the higher-priority one wins
	require.NoError(t, store.Upload(ctx, "businesses", "3/report.pdf", []byte("backup copy"), "application/pdf", false))
	require.NoError(t, store.Upload(ctx, "business-files", "businesses/3/report.pdf", []byte("primary copy"), "application/pdf", false))

	resolved, err := resolver.Resolve(ctx, 3, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "business-files", resolved.Bucket)
	assert.Equal(t, "businesses/3/report.pdf", resolved.Path)
	assert.Equal(t, []byte("primary copy"), resolved.Data)
}

func TestResolveNestedConvention(t *testing.T) {
	resolver, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "documents", "businesses/5/documents/contract.pdf", []byte("x"), "application/pdf", false))

	resolved, err := resolver.Resolve(ctx, 5, "contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents", resolved.Bucket)
	assert.Equal(t, "businesses/5/documents/contract.pdf", resolved.Path)
}

func TestResolveExhaustion(t *testing.T) {
	resolver, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "business-files", "businesses/3/report.pdf", []byte("x"), "application/pdf", false))

	_, err := resolver.Resolve(ctx, 4, "report.pdf")
	assert.Equal(t, ErrNotFound, err)

	_, err = resolver.Resolve(ctx, 3, "other.pdf")
	assert.Equal(t, ErrNotFound, err)
}

func TestResolveDeterministic(t *testing.T) {
	resolver, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "businesses", "businesses/9/a.png", []byte("one"), "image/png", false))
	require.NoError(t, store.Upload(ctx, "documents", "businesses/9/a.png", []byte("two"), "image/png", false))

	for i := 0; i < 10; i++ {
		resolved, err := resolver.Resolve(ctx, 9, "a.png")
		require.NoError(t, err)
		assert.Equal(t, "businesses", resolved.Bucket)
	}
}

func TestResolvePathBucketFallback(t *testing.T) {
	resolver, store := newTestResolver()
	ctx := context.Background()

	// Object lives in a different bucket than the one the URL names
	require.NoError(t, store.Upload(ctx, "documents", "businesses/3/report.pdf", []byte("x"), "application/pdf", false))

	resolved, err := resolver.ResolvePath(ctx, "business-files", "businesses/3/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents", resolved.Bucket)

	_, err = resolver.ResolvePath(ctx, "business-files", "nope.pdf")
	assert.Equal(t, ErrNotFound, err)
}

func TestListForBusiness(t *testing.T) {
	resolver, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "business-files", "businesses/3/logo.png", []byte("x"), "image/png", false))
	require.NoError(t, store.Upload(ctx, "businesses", "3/statement.pdf", []byte("x"), "application/pdf", false))
	// Duplicate path in a lower-priority bucket is dropped
	require.NoError(t, store.Upload(ctx, "documents", "businesses/3/logo.png", []byte("x"), "image/png", false))
	// Other businesses do not leak in
	require.NoError(t, store.Upload(ctx, "business-files", "businesses/4/other.png", []byte("x"), "image/png", false))

	listed, err := resolver.ListForBusiness(ctx, 3)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	byPath := map[string]string{}
	for _, r := range listed {
		byPath[r.Path] = r.Bucket
	}
	assert.Equal(t, "business-files", byPath["businesses/3/logo.png"])
	assert.Equal(t, "businesses", byPath["3/statement.pdf"])
}

func TestListForBusinessDeduplicatesByName(t *testing.T) {
	resolver, store := newTestResolver()
	ctx := context.Background()

	// One logical file written under two historical conventions; only the
	// higher-priority location is listed
	require.NoError(t, store.Upload(ctx, "business-files", "businesses/3/logo.png", []byte("x"), "image/png", false))
	require.NoError(t, store.Upload(ctx, "businesses", "3/logo.png", []byte("x"), "image/png", false))

	listed, err := resolver.ListForBusiness(ctx, 3)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "business-files", listed[0].Bucket)
	assert.Equal(t, "businesses/3/logo.png", listed[0].Path)
}

func TestMemoryStoreUploadCollision(t *testing.T) {
	store := NewMemoryStore("business-files")
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "business-files", "a.txt", []byte("one"), "text/plain", false))

	err := store.Upload(ctx, "business-files", "a.txt", []byte("two"), "text/plain", false)
	assert.Equal(t, ErrAlreadyExists, err)

	// upsert overwrites
	require.NoError(t, store.Upload(ctx, "business-files", "a.txt", []byte("two"), "text/plain", true))
	obj, err := store.Download(ctx, "business-files", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), obj.Data)
}
