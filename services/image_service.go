package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/candleworks/storefront-api/logger"
	"github.com/candleworks/storefront-api/utils"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// ProductImagePrefix is the S3 key prefix for product photos
const ProductImagePrefix = "products"

const (
	imageURLCacheSize = 1024
	// kept well under PresignTTL so a cached link never outlives its signature
	imageURLCacheTTL = PresignTTL - 15*time.Minute
)

// ImageService stores product photos and resolves them to browser URLs
type ImageService interface {
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)
	GetImageURL(ctx context.Context, imageKey string) (string, error)
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService keeps product photos in S3. Presigned links are cached per
// key so catalog listings do not sign every photo on every request.
type S3ImageService struct {
	store S3Interface
	urls  *expirable.LRU[string, string]
}

var imageServiceInstance ImageService

// NewS3ImageService wraps an object store with image validation and URL caching
func NewS3ImageService(store S3Interface) *S3ImageService {
	return &S3ImageService{
		store: store,
		urls:  expirable.NewLRU[string, string](imageURLCacheSize, nil, imageURLCacheTTL),
	}
}

// InitImageService installs an S3 backed image service as the process default
func InitImageService(store S3Interface) ImageService {
	imageServiceInstance = NewS3ImageService(store)
	return imageServiceInstance
}

// GetImageService returns the process default, nil when storage is disabled
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService replaces the process default
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	contentType, _ := utils.ImageContentType(fileHeader.Filename)
	key, err := s.store.UploadFile(ctx, ProductImagePrefix, fileHeader, contentType)
	if err != nil {
		return "", fmt.Errorf("upload product image: %w", err)
	}
	// same filename may land on the same key, drop any stale link
	s.urls.Remove(key)

	logger.FromCtx(ctx).Info("product image stored",
		zap.String("key", key), zap.Int64("size", fileHeader.Size))
	return key, nil
}

func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	if url, ok := s.urls.Get(imageKey); ok {
		return url, nil
	}

	url, err := s.store.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("sign product image %s: %w", imageKey, err)
	}
	s.urls.Add(imageKey, url)
	return url, nil
}

func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}
	s.urls.Remove(imageKey)

	if err := s.store.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("delete product image %s: %w", imageKey, err)
	}
	return nil
}

// CachedURLs reports how many signed links are currently held
func (s *S3ImageService) CachedURLs() int {
	return s.urls.Len()
}
