package services

// MockImageService runs the real S3ImageService against an in-memory bucket,
// so tests see the same validation, keys and URL caching as production.
type MockImageService struct {
	*S3ImageService
	Bucket *MockS3Service
}

func NewMockImageService() *MockImageService {
	bucket := NewMockS3Service()
	return &MockImageService{
		S3ImageService: NewS3ImageService(bucket),
		Bucket:         bucket,
	}
}

// SetAsMockForTesting installs the mock as the process image service
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

func (m *MockImageService) GetUploadedImages() map[string][]byte {
	return m.Bucket.GetUploadedFiles()
}

func (m *MockImageService) ImageExists(imageKey string) bool {
	return m.Bucket.FileExists(imageKey)
}
