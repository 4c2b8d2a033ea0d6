package services_test

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/repository"
)

// --- Mocks ---

// MockSnapshotRepository is a mock for SnapshotRepository.
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, userID int64, module string, data []byte) error {
	args := m.Called(ctx, userID, module, data)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Load(ctx context.Context, userID int64, module string) ([]byte, error) {
	args := m.Called(ctx, userID, module)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]byte), args.Error(1)
}

// fakeSnapshotStore - хранилище снимков в памяти для тестов восстановления
// состояния: что сохранили, то и загрузим.
type fakeSnapshotStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{data: make(map[string][]byte)}
}

func (f *fakeSnapshotStore) key(userID int64, module string) string {
	return fmt.Sprintf("%s/%d", module, userID)
}

func (f *fakeSnapshotStore) Save(_ context.Context, userID int64, module string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.data[f.key(userID, module)] = cp
	return nil
}

func (f *fakeSnapshotStore) Load(_ context.Context, userID int64, module string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[f.key(userID, module)]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return data, nil
}

// MockDocumentRepository is a mock for DocumentRepository.
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetDocumentByID(
	ctx context.Context,
	userID int64,
	docID string,
) (*models.Document, error) {
	args := m.Called(ctx, userID, docID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListDocumentsByUserID(
	ctx context.Context,
	userID int64,
) ([]models.Document, error) {
	args := m.Called(ctx, userID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Document), args.Error(1)
}

func (m *MockDocumentRepository) DeleteDocument(ctx context.Context, userID int64, docID string) error {
	args := m.Called(ctx, userID, docID)
	return args.Error(0)
}

// MockFileStorage is a mock for FileStorage.
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) UploadFile(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	args := m.Called(ctx, objectKey, reader, size, contentType)
	// Вычитываем reader, как это сделал бы настоящий клиент хранилища
	_, _ = io.Copy(io.Discard, reader)
	return args.Error(0)
}

func (m *MockFileStorage) DownloadFile(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(io.ReadCloser), args.Error(1)
}

func (m *MockFileStorage) DeleteFile(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}
