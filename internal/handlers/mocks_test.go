package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/mock"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/middleware"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
)

const testUserID = int64(1)

// authedRequest создает запрос с userID в контексте, как это сделал бы
// middleware аутентификации.
func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, testUserID)
	return req.WithContext(ctx)
}

// MockLedgerService is a mock implementation of LedgerService interface.
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) AddAsset(
	ctx context.Context, userID int64, req models.CreateAssetRequest,
) (*models.Asset, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockLedgerService) ListAssets(ctx context.Context, userID int64) ([]models.Asset, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Asset), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockLedgerService) GetAsset(ctx context.Context, userID int64, assetID string) (*models.Asset, error) {
	args := m.Called(ctx, userID, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockLedgerService) UpdateAsset(
	ctx context.Context, userID int64, assetID string, req models.UpdateAssetRequest,
) (*models.Asset, error) {
	args := m.Called(ctx, userID, assetID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockLedgerService) RemoveAsset(ctx context.Context, userID int64, assetID string) error {
	args := m.Called(ctx, userID, assetID)
	return args.Error(0)
}

func (m *MockLedgerService) AddBeneficiary(
	ctx context.Context, userID int64, assetID string, req models.CreateBeneficiaryRequest,
) (*models.Beneficiary, error) {
	args := m.Called(ctx, userID, assetID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Beneficiary), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockLedgerService) UpdateBeneficiary(
	ctx context.Context, userID int64, assetID, beneficiaryID string, req models.UpdateBeneficiaryRequest,
) (*models.Beneficiary, error) {
	args := m.Called(ctx, userID, assetID, beneficiaryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Beneficiary), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockLedgerService) RemoveBeneficiary(ctx context.Context, userID int64, assetID, beneficiaryID string) error {
	args := m.Called(ctx, userID, assetID, beneficiaryID)
	return args.Error(0)
}

func (m *MockLedgerService) ValidateBeneficiaryPercentages(
	ctx context.Context, userID int64, assetID string,
) (*models.AllocationStatus, error) {
	args := m.Called(ctx, userID, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AllocationStatus), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockLedgerService) GetChangeHistory(
	ctx context.Context, userID int64, assetID, beneficiaryID string,
) ([]models.ChangeLogEntry, error) {
	args := m.Called(ctx, userID, assetID, beneficiaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChangeLogEntry), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

// MockVaultService is a mock implementation of VaultService interface.
type MockVaultService struct {
	mock.Mock
}

func (m *MockVaultService) Enter(ctx context.Context, userID int64) (*models.VaultStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VaultStatus), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockVaultService) SetCode(ctx context.Context, userID int64, code string) error {
	args := m.Called(ctx, userID, code)
	return args.Error(0)
}

func (m *MockVaultService) Unlock(ctx context.Context, userID int64, candidate string) error {
	args := m.Called(ctx, userID, candidate)
	return args.Error(0)
}

func (m *MockVaultService) Lock(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockVaultService) ListDigitalAssets(ctx context.Context, userID int64) ([]models.DigitalAsset, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DigitalAsset), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockVaultService) AddDigitalAsset(
	ctx context.Context, userID int64, req models.DigitalAssetRequest,
) (*models.DigitalAsset, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DigitalAsset), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockVaultService) UpdateDigitalAsset(
	ctx context.Context, userID int64, assetID string, req models.DigitalAssetRequest,
) (*models.DigitalAsset, error) {
	args := m.Called(ctx, userID, assetID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DigitalAsset), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockVaultService) RemoveDigitalAsset(ctx context.Context, userID int64, assetID string) error {
	args := m.Called(ctx, userID, assetID)
	return args.Error(0)
}

// MockDocumentService is a mock implementation of DocumentService interface.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) UploadDocument(
	ctx context.Context, userID int64, title, category, contentType string, reader io.Reader, size int64,
) (*models.Document, error) {
	args := m.Called(ctx, userID, title, category, contentType, reader, size)
	// Consume the reader to simulate reading the body
	_, _ = io.Copy(io.Discard, reader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockDocumentService) ListDocuments(ctx context.Context, userID int64) ([]models.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Document), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockDocumentService) DownloadDocument(
	ctx context.Context, userID int64, docID string,
) (io.ReadCloser, *models.Document, error) {
	args := m.Called(ctx, userID, docID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	reader := args.Get(0).(io.ReadCloser) //nolint:errcheck // Acceptable for mocks
	doc := args.Get(1).(*models.Document) //nolint:errcheck // Acceptable for mocks
	return reader, doc, args.Error(2)
}

func (m *MockDocumentService) DeleteDocument(ctx context.Context, userID int64, docID string) error {
	args := m.Called(ctx, userID, docID)
	return args.Error(0)
}
