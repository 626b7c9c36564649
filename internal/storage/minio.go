package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/Talalkassab/manfaa-api/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore is the S3-compatible ObjectStore implementation
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore connects to the configured S3-compatible endpoint
func NewMinioStore(cfg *config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client}, nil
}

func (s *MinioStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, translateMinioErr(obj.Err)
		}
		infos = append(infos, ObjectInfo{
			Path:        obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
		})
	}
	return infos, nil
}

func (s *MinioStore) Download(ctx context.Context, bucket, path string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioErr(err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat forces the request and surfaces NoSuchKey
	stat, err := obj.Stat()
	if err != nil {
		return nil, translateMinioErr(err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}

	return &Object{Data: data, ContentType: stat.ContentType}, nil
}

func (s *MinioStore) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error {
	if !upsert {
		_, err := s.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
		if err == nil {
			return ErrAlreadyExists
		}
		if translateMinioErr(err) != ErrNotFound {
			return err
		}
	}

	_, err := s.client.PutObject(ctx, bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *MinioStore) Remove(ctx context.Context, bucket, path string) error {
	err := s.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{})
	return translateMinioErr(err)
}

func (s *MinioStore) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

func translateMinioErr(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return ErrNotFound
	}
	return err
}
