package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/handlers"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/services"
)

// newVaultRouter собирает роутер сейфа так же, как это делает сервер.
func newVaultRouter(h *handlers.VaultHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Route("/api/vault", func(r chi.Router) {
		r.Post("/enter", h.Enter)
		r.Post("/code", h.SetCode)
		r.Post("/unlock", h.Unlock)
		r.Post("/lock", h.Lock)
		r.Get("/assets", h.ListDigitalAssets)
		r.Post("/assets", h.CreateDigitalAsset)
		r.Patch("/assets/{id}", h.UpdateDigitalAsset)
		r.Delete("/assets/{id}", h.DeleteDigitalAsset)
	})
	return router
}

func TestVaultHandler_Enter(t *testing.T) {
	t.Run("Вход возвращает запертый статус", func(t *testing.T) {
		mockService := new(MockVaultService)
		mockService.On("Enter", mock.Anything, testUserID).
			Return(&models.VaultStatus{Configured: true, Locked: true}, nil)
		router := newVaultRouter(handlers.NewVaultHandler(mockService))

		req := authedRequest(http.MethodPost, "/api/vault/enter", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got models.VaultStatus
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.True(t, got.Configured)
		assert.True(t, got.Locked)
	})

	t.Run("Отсутствует UserID в контексте", func(t *testing.T) {
		mockService := new(MockVaultService)
		router := newVaultRouter(handlers.NewVaultHandler(mockService))

		req := httptest.NewRequest(http.MethodPost, "/api/vault/enter", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertNotCalled(t, "Enter", mock.Anything, mock.Anything)
	})
}

func TestVaultHandler_SetCode(t *testing.T) {
	tests := []struct {
		name               string
		body               string
		setupMock          func(mockSvc *MockVaultService)
		expectedStatusCode int
		expectedBody       string
	}{
		{
			name: "Успех",
			body: `{"code": "1234"}`,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("SetCode", mock.Anything, testUserID, "1234").Return(nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       `{"unlocked":true}` + "\n",
		},
		{
			name: "Нецифровые символы отбрасываются",
			body: `{"code": "12-34 ab"}`,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("SetCode", mock.Anything, testUserID, "1234").Return(nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       `{"unlocked":true}` + "\n",
		},
		{
			name: "Девять цифр обрезаются до восьми",
			body: `{"code": "123456789"}`,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("SetCode", mock.Anything, testUserID, "12345678").Return(nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       `{"unlocked":true}` + "\n",
		},
		{
			name:               "Цифры не из ASCII отбрасываются",
			body:               `{"code": "١٢٣٤٥٦٧٨"}`,
			setupMock:          func(_ *MockVaultService) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "Код должен содержать от 4 до 8 цифр\n",
		},
		{
			name:               "Слишком короткий код",
			body:               `{"code": "42"}`,
			setupMock:          func(_ *MockVaultService) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "Код должен содержать от 4 до 8 цифр\n",
		},
		{
			name:               "После очистки остается слишком мало цифр",
			body:               `{"code": "1a2b3c"}`,
			setupMock:          func(_ *MockVaultService) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "Код должен содержать от 4 до 8 цифр\n",
		},
		{
			name: "Код уже установлен",
			body: `{"code": "1234"}`,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("SetCode", mock.Anything, testUserID, "1234").
					Return(services.ErrVaultAlreadyConfigured)
			},
			expectedStatusCode: http.StatusConflict,
			expectedBody:       "Код доступа уже установлен\n",
		},
		{
			name:               "Невалидный JSON",
			body:               `{"code": `,
			setupMock:          func(_ *MockVaultService) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "Неверный формат запроса\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVaultService)
			tt.setupMock(mockService)
			router := newVaultRouter(handlers.NewVaultHandler(mockService))

			req := authedRequest(http.MethodPost, "/api/vault/code", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestVaultHandler_Unlock(t *testing.T) {
	tests := []struct {
		name               string
		body               string
		setupMock          func(mockSvc *MockVaultService)
		expectedStatusCode int
		expectedBody       string
	}{
		{
			name: "Успех",
			body: `{"code": "1234"}`,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("Unlock", mock.Anything, testUserID, "1234").Return(nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       `{"unlocked":true}` + "\n",
		},
		{
			name: "Неверный код",
			body: `{"code": "0000"}`,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("Unlock", mock.Anything, testUserID, "0000").
					Return(services.ErrInvalidVaultCode)
			},
			expectedStatusCode: http.StatusForbidden,
			expectedBody:       `{"unlocked":false}` + "\n",
		},
		{
			name: "Код еще не установлен",
			body: `{"code": "1234"}`,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("Unlock", mock.Anything, testUserID, "1234").
					Return(services.ErrVaultNotConfigured)
			},
			expectedStatusCode: http.StatusConflict,
			expectedBody:       "Код доступа еще не установлен\n",
		},
		{
			name:               "Слишком короткий код",
			body:               `{"code": "12"}`,
			setupMock:          func(_ *MockVaultService) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "Код должен содержать от 4 до 8 цифр\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVaultService)
			tt.setupMock(mockService)
			router := newVaultRouter(handlers.NewVaultHandler(mockService))

			req := authedRequest(http.MethodPost, "/api/vault/unlock", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestVaultHandler_Lock(t *testing.T) {
	t.Run("Успех", func(t *testing.T) {
		mockService := new(MockVaultService)
		mockService.On("Lock", mock.Anything, testUserID).Return(nil)
		router := newVaultRouter(handlers.NewVaultHandler(mockService))

		req := authedRequest(http.MethodPost, "/api/vault/lock", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestVaultHandler_ListDigitalAssets(t *testing.T) {
	tests := []struct {
		name               string
		mockReturnAssets   []models.DigitalAsset
		mockReturnErr      error
		expectedStatusCode int
	}{
		{
			name: "Успех",
			mockReturnAssets: []models.DigitalAsset{
				{ID: "da-1", Category: models.DigitalAssetPasswords, Title: "Почта"},
			},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Сейф заперт",
			mockReturnErr:      services.ErrVaultLocked,
			expectedStatusCode: http.StatusLocked,
		},
		{
			name:               "Код не установлен",
			mockReturnErr:      services.ErrVaultNotConfigured,
			expectedStatusCode: http.StatusConflict,
		},
		{
			name:               "Внутренняя ошибка сервера",
			mockReturnErr:      errors.New("internal error"),
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVaultService)
			mockService.On("ListDigitalAssets", mock.Anything, testUserID).
				Return(tt.mockReturnAssets, tt.mockReturnErr)
			router := newVaultRouter(handlers.NewVaultHandler(mockService))

			req := authedRequest(http.MethodGet, "/api/vault/assets", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
		})
	}
}

func TestVaultHandler_CreateDigitalAsset(t *testing.T) {
	validBody := `{"category": "passwords", "title": "Почта", "username": "a@b.c", "password": "secret"}`

	tests := []struct {
		name               string
		body               string
		setupMock          func(mockSvc *MockVaultService)
		expectedStatusCode int
	}{
		{
			name: "Успех",
			body: validBody,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("AddDigitalAsset", mock.Anything, testUserID, mock.Anything).
					Return(&models.DigitalAsset{ID: "da-1", Title: "Почта"}, nil)
			},
			expectedStatusCode: http.StatusCreated,
		},
		{
			name:               "Неизвестная категория",
			body:               `{"category": "secrets", "title": "Почта"}`,
			setupMock:          func(_ *MockVaultService) {},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Пустой заголовок",
			body:               `{"category": "passwords", "title": ""}`,
			setupMock:          func(_ *MockVaultService) {},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name: "Сейф заперт",
			body: validBody,
			setupMock: func(mockSvc *MockVaultService) {
				mockSvc.On("AddDigitalAsset", mock.Anything, testUserID, mock.Anything).
					Return(nil, services.ErrVaultLocked)
			},
			expectedStatusCode: http.StatusLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVaultService)
			tt.setupMock(mockService)
			router := newVaultRouter(handlers.NewVaultHandler(mockService))

			req := authedRequest(http.MethodPost, "/api/vault/assets", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestVaultHandler_UpdateDigitalAsset(t *testing.T) {
	t.Run("Запись не найдена", func(t *testing.T) {
		mockService := new(MockVaultService)
		mockService.On("UpdateDigitalAsset", mock.Anything, testUserID, "missing", mock.Anything).
			Return(nil, services.ErrDigitalAssetNotFound)
		router := newVaultRouter(handlers.NewVaultHandler(mockService))

		req := authedRequest(http.MethodPatch, "/api/vault/assets/missing",
			strings.NewReader(`{"category": "passwords", "title": "Почта"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Успех", func(t *testing.T) {
		mockService := new(MockVaultService)
		mockService.On("UpdateDigitalAsset", mock.Anything, testUserID, "da-1", mock.Anything).
			Return(&models.DigitalAsset{ID: "da-1", Title: "Рабочая почта"}, nil)
		router := newVaultRouter(handlers.NewVaultHandler(mockService))

		req := authedRequest(http.MethodPatch, "/api/vault/assets/da-1",
			strings.NewReader(`{"category": "passwords", "title": "Рабочая почта"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestVaultHandler_DeleteDigitalAsset(t *testing.T) {
	tests := []struct {
		name               string
		mockReturnErr      error
		expectedStatusCode int
	}{
		{"Успех", nil, http.StatusNoContent},
		{"Запись не найдена", services.ErrDigitalAssetNotFound, http.StatusNotFound},
		{"Сейф заперт", services.ErrVaultLocked, http.StatusLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVaultService)
			mockService.On("RemoveDigitalAsset", mock.Anything, testUserID, "da-1").
				Return(tt.mockReturnErr)
			router := newVaultRouter(handlers.NewVaultHandler(mockService))

			req := authedRequest(http.MethodDelete, "/api/vault/assets/da-1", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatusCode, rr.Code)
		})
	}
}
