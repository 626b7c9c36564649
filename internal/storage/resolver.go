package storage

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"
)

// PathFunc builds a candidate object path for a logical (business, file)
// pair under one historical path convention.
type PathFunc func(businessID uint, fileName string) string

// Strategy is one candidate location: a bucket plus a path convention
type Strategy struct {
	Bucket string
	Path   PathFunc
}

// Resolved is a successfully located object together with the location that
// produced it.
type Resolved struct {
	Object
	Bucket string
	Path   string
}

// pathConventions are the historical layouts files were written under, in
// lookup priority order:
//
//  1. businesses/{id}/{file}
//  2. businesses/{id}/documents/{file}   (nested convention for non-images)
//  3. {id}/{file}
//  4. {file}
//
// Older installations wrote each of these into different buckets, so the
// resolver crosses them with the configured bucket priority list.
var pathConventions = []PathFunc{
	func(id uint, name string) string { return fmt.Sprintf("businesses/%d/%s", id, name) },
	func(id uint, name string) string { return fmt.Sprintf("businesses/%d/documents/%s", id, name) },
	func(id uint, name string) string { return fmt.Sprintf("%d/%s", id, name) },
	func(id uint, name string) string { return name },
}

// DefaultStrategies builds the full candidate list: buckets in the given
// priority order, each crossed with every path convention. The order is
// deterministic; if copies of the same logical file exist in more than one
// location, the first hit wins and no reconciliation happens.
func DefaultStrategies(buckets []string) []Strategy {
	strategies := make([]Strategy, 0, len(buckets)*len(pathConventions))
	for _, bucket := range buckets {
		for _, path := range pathConventions {
			strategies = append(strategies, Strategy{Bucket: bucket, Path: path})
		}
	}
	return strategies
}

// Resolver searches an ordered list of candidate locations for a file
type Resolver struct {
	store      ObjectStore
	strategies []Strategy
	buckets    []string
	log        *zap.Logger
}

func NewResolver(store ObjectStore, buckets []string, log *zap.Logger) *Resolver {
	return &Resolver{
		store:      store,
		strategies: DefaultStrategies(buckets),
		buckets:    buckets,
		log:        log,
	}
}

// Resolve tries every candidate location in order and returns the first
// hit. Individual location failures are logged and swallowed; only
// exhaustion of the whole list surfaces, as ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, businessID uint, fileName string) (*Resolved, error) {
	for _, s := range r.strategies {
		path := s.Path(businessID, fileName)
		obj, err := r.store.Download(ctx, s.Bucket, path)
		if err == nil {
			return &Resolved{Object: *obj, Bucket: s.Bucket, Path: path}, nil
		}
		if err != ErrNotFound {
			r.log.Debug("Location lookup failed",
				zap.String("bucket", s.Bucket),
				zap.String("path", path),
				zap.Error(err))
		}
	}
	return nil, ErrNotFound
}

// ResolvePath fetches an exact path, first from the requested bucket, then
// from the remaining buckets in priority order. Files recorded against one
// bucket may have been migrated into another; the path itself stays stable.
func (r *Resolver) ResolvePath(ctx context.Context, bucket, path string) (*Resolved, error) {
	candidates := make([]string, 0, len(r.buckets)+1)
	candidates = append(candidates, bucket)
	for _, b := range r.buckets {
		if b != bucket {
			candidates = append(candidates, b)
		}
	}

	for _, b := range candidates {
		obj, err := r.store.Download(ctx, b, path)
		if err == nil {
			return &Resolved{Object: *obj, Bucket: b, Path: path}, nil
		}
		if err != ErrNotFound {
			r.log.Debug("Location lookup failed",
				zap.String("bucket", b),
				zap.String("path", path),
				zap.Error(err))
		}
	}
	return nil, ErrNotFound
}

// ListForBusiness lists objects stored for a business under every bucket
// and path convention, de-duplicated by file name with first-found-wins
// ordering. The assembler reconciles this listing against metadata rows.
func (r *Resolver) ListForBusiness(ctx context.Context, businessID uint) ([]Resolved, error) {
	prefixes := []string{
		fmt.Sprintf("businesses/%d/", businessID),
		fmt.Sprintf("%d/", businessID),
	}

	// Keyed by base file name: copies of one logical file under different
	// historical conventions collapse to the highest-priority location,
	// matching how Resolve treats them.
	seen := make(map[string]bool)
	var out []Resolved
	for _, bucket := range r.buckets {
		for _, prefix := range prefixes {
			infos, err := r.store.List(ctx, bucket, prefix)
			if err != nil {
				if err != ErrNotFound {
					r.log.Debug("Listing failed",
						zap.String("bucket", bucket),
						zap.String("prefix", prefix),
						zap.Error(err))
				}
				continue
			}
			for _, info := range infos {
				name := path.Base(info.Path)
				if seen[name] {
					continue
				}
				seen[name] = true
				out = append(out, Resolved{
					Object: Object{ContentType: info.ContentType},
					Bucket: bucket,
					Path:   info.Path,
				})
			}
		}
	}
	return out, nil
}
