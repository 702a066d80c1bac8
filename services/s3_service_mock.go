package services

import (
	"context"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"sync"
)

type mockObject struct {
	body        []byte
	contentType string
}

// MockS3Service is an in-memory bucket satisfying S3Interface
type MockS3Service struct {
	mu       sync.RWMutex
	objects  map[string]mockObject
	presigns int

	// PutErr, when set, fails every write
	PutErr error
}

func NewMockS3Service() *MockS3Service {
	return &MockS3Service{objects: make(map[string]mockObject)}
}

// SetAsMockForTesting installs the mock as the process object store
func (m *MockS3Service) SetAsMockForTesting() {
	SetS3Service(m)
}

// UploadFile stores the upload under prefix/mock_<filename>
func (m *MockS3Service) UploadFile(ctx context.Context, prefix string, fileHeader *multipart.FileHeader, contentType string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	key := ObjectKey(prefix, "mock_"+fileHeader.Filename)
	return key, m.PutObject(ctx, key, contentType, body)
}

func (m *MockS3Service) PutObject(_ context.Context, key, contentType string, body []byte) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = mockObject{body: append([]byte(nil), body...), contentType: contentType}
	return nil
}

func (m *MockS3Service) GetPresignedURL(_ context.Context, s3Key string) (string, error) {
	if s3Key == "" {
		return "", nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[s3Key]; !ok {
		return "", fmt.Errorf("no such key: %s", s3Key)
	}
	m.presigns++
	return "https://test-bucket.s3.eu-central-1.amazonaws.com/" + s3Key + "?mock=true", nil
}

func (m *MockS3Service) DeleteFile(_ context.Context, s3Key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, s3Key)
	return nil
}

// GetUploadedFiles snapshots the bucket as key to body
func (m *MockS3Service) GetUploadedFiles() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := make(map[string][]byte, len(m.objects))
	for key, obj := range m.objects {
		files[key] = obj.body
	}
	return files
}

func (m *MockS3Service) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

func (m *MockS3Service) FileExists(s3Key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[s3Key]
	return ok
}

// Presigns counts the links signed so far
func (m *MockS3Service) Presigns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presigns
}

// Clear empties the bucket
func (m *MockS3Service) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.DeleteFunc(m.objects, func(string, mockObject) bool { return true })
	m.presigns = 0
}
