package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/middleware"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/services"
)

// AssetHandler обрабатывает HTTP-запросы реестра наследства: активы,
// наследники и журнал изменений.
type AssetHandler struct {
	ledgerService services.LedgerService
}

// NewAssetHandler создает новый экземпляр AssetHandler.
func NewAssetHandler(ls services.LedgerService) *AssetHandler {
	return &AssetHandler{ledgerService: ls}
}

// writeJSON кодирует ответ в JSON с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования JSON-ответа: %v", err)
	}
}

// CreateAsset обрабатывает POST запрос на создание актива.
func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:CreateAsset] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	var req models.CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AssetHandler:CreateAsset] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	// Валидация обязательных полей формы актива
	if req.Name == "" || req.Type == "" || req.Value == "" {
		http.Error(w, "Поля name, type и value обязательны", http.StatusBadRequest)
		return
	}

	asset, err := h.ledgerService.AddAsset(r.Context(), userID, req)
	if err != nil {
		log.Printf("[AssetHandler:CreateAsset] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	log.Printf("[AssetHandler:CreateAsset] Актив '%s' (ID: %s) создан пользователем %d", asset.Name, asset.ID, userID)
	writeJSON(w, http.StatusCreated, asset)
}

// ListAssets обрабатывает GET запрос на получение списка активов.
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:ListAssets] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assets, err := h.ledgerService.ListAssets(r.Context(), userID)
	if err != nil {
		log.Printf("[AssetHandler:ListAssets] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, assets)
}

// GetAsset обрабатывает GET запрос на получение одного актива.
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:GetAsset] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "assetID")

	asset, err := h.ledgerService.GetAsset(r.Context(), userID, assetID)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			http.Error(w, "Актив не найден", http.StatusNotFound)
			return
		}
		log.Printf("[AssetHandler:GetAsset] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

// UpdateAsset обрабатывает PATCH запрос на частичное обновление актива.
func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:UpdateAsset] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "assetID")

	var req models.UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AssetHandler:UpdateAsset] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	// Переданные поля не должны обнулять обязательные значения
	if (req.Name != nil && *req.Name == "") ||
		(req.Type != nil && *req.Type == "") ||
		(req.Value != nil && *req.Value == "") {
		http.Error(w, "Поля name, type и value не могут быть пустыми", http.StatusBadRequest)
		return
	}

	asset, err := h.ledgerService.UpdateAsset(r.Context(), userID, assetID, req)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			http.Error(w, "Актив не найден", http.StatusNotFound)
			return
		}
		log.Printf("[AssetHandler:UpdateAsset] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

// DeleteAsset обрабатывает DELETE запрос на удаление актива
// вместе со всеми его наследниками.
func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:DeleteAsset] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "assetID")

	if err := h.ledgerService.RemoveAsset(r.Context(), userID, assetID); err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			http.Error(w, "Актив не найден", http.StatusNotFound)
			return
		}
		log.Printf("[AssetHandler:DeleteAsset] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	log.Printf("[AssetHandler:DeleteAsset] Актив %s удален пользователем %d", assetID, userID)
	w.WriteHeader(http.StatusNoContent)
}

// validateBeneficiaryForm проверяет обязательные поля формы наследника.
// Возвращает текст ошибки для клиента или пустую строку.
func validateBeneficiaryForm(req models.CreateBeneficiaryRequest) string {
	if !req.Type.Valid() {
		return "Поле type должно быть primary или contingent"
	}
	if req.FullName == "" {
		return "Поле full_name обязательно"
	}
	if req.Relationship == "" {
		return "Поле relationship обязательно"
	}
	if req.DateOfBirth == "" {
		return "Поле date_of_birth обязательно"
	}
	if req.GovernmentID == "" {
		return "Поле government_id обязательно"
	}
	if req.Email == "" {
		return "Поле email обязательно"
	}
	if req.Percentage < 0 || req.Percentage > 100 {
		return "Поле percentage должно быть в диапазоне от 0 до 100"
	}
	return ""
}

// CreateBeneficiary обрабатывает POST запрос на добавление наследника к активу.
func (h *AssetHandler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:CreateBeneficiary] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "assetID")

	var req models.CreateBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AssetHandler:CreateBeneficiary] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if msg := validateBeneficiaryForm(req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	beneficiary, err := h.ledgerService.AddBeneficiary(r.Context(), userID, assetID, req)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			http.Error(w, "Актив не найден", http.StatusNotFound)
			return
		}
		log.Printf("[AssetHandler:CreateBeneficiary] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	log.Printf("[AssetHandler:CreateBeneficiary] Наследник '%s' (ID: %s) добавлен к активу %s пользователем %d",
		beneficiary.FullName, beneficiary.ID, assetID, userID)
	writeJSON(w, http.StatusCreated, beneficiary)
}

// UpdateBeneficiary обрабатывает PATCH запрос на частичное обновление наследника.
func (h *AssetHandler) UpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:UpdateBeneficiary] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "assetID")
	beneficiaryID := chi.URLParam(r, "beneficiaryID")

	var req models.UpdateBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AssetHandler:UpdateBeneficiary] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if req.Type != nil && !req.Type.Valid() {
		http.Error(w, "Поле type должно быть primary или contingent", http.StatusBadRequest)
		return
	}
	if req.FullName != nil && *req.FullName == "" {
		http.Error(w, "Поле full_name обязательно", http.StatusBadRequest)
		return
	}
	if req.Relationship != nil && *req.Relationship == "" {
		http.Error(w, "Поле relationship обязательно", http.StatusBadRequest)
		return
	}
	if req.DateOfBirth != nil && *req.DateOfBirth == "" {
		http.Error(w, "Поле date_of_birth обязательно", http.StatusBadRequest)
		return
	}
	if req.GovernmentID != nil && *req.GovernmentID == "" {
		http.Error(w, "Поле government_id обязательно", http.StatusBadRequest)
		return
	}
	if req.Email != nil && *req.Email == "" {
		http.Error(w, "Поле email обязательно", http.StatusBadRequest)
		return
	}
	if req.Percentage != nil && (*req.Percentage < 0 || *req.Percentage > 100) {
		http.Error(w, "Поле percentage должно быть в диапазоне от 0 до 100", http.StatusBadRequest)
		return
	}

	beneficiary, err := h.ledgerService.UpdateBeneficiary(r.Context(), userID, assetID, beneficiaryID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAssetNotFound):
			http.Error(w, "Актив не найден", http.StatusNotFound)
		case errors.Is(err, services.ErrBeneficiaryNotFound):
			http.Error(w, "Наследник не найден", http.StatusNotFound)
		default:
			log.Printf("[AssetHandler:UpdateBeneficiary] Внутренняя ошибка для пользователя %d: %v", userID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, beneficiary)
}

// DeleteBeneficiary обрабатывает DELETE запрос на удаление наследника.
func (h *AssetHandler) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:DeleteBeneficiary] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "assetID")
	beneficiaryID := chi.URLParam(r, "beneficiaryID")

	if err := h.ledgerService.RemoveBeneficiary(r.Context(), userID, assetID, beneficiaryID); err != nil {
		switch {
		case errors.Is(err, services.ErrAssetNotFound):
			http.Error(w, "Актив не найден", http.StatusNotFound)
		case errors.Is(err, services.ErrBeneficiaryNotFound):
			http.Error(w, "Наследник не найден", http.StatusNotFound)
		default:
			log.Printf("[AssetHandler:DeleteBeneficiary] Внутренняя ошибка для пользователя %d: %v", userID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	log.Printf("[AssetHandler:DeleteBeneficiary] Наследник %s актива %s удален пользователем %d",
		beneficiaryID, assetID, userID)
	w.WriteHeader(http.StatusNoContent)
}

// GetAllocation обрабатывает GET запрос на проверку суммы долей наследников.
// Проверка информационная: невалидная раскладка не блокирует операции.
func (h *AssetHandler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:GetAllocation] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "assetID")

	status, err := h.ledgerService.ValidateBeneficiaryPercentages(r.Context(), userID, assetID)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			http.Error(w, "Актив не найден", http.StatusNotFound)
			return
		}
		log.Printf("[AssetHandler:GetAllocation] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// GetHistory обрабатывает GET запрос на получение журнала изменений.
// Поддерживает фильтры asset_id и beneficiary_id (объединяются по И).
func (h *AssetHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[AssetHandler:GetHistory] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := r.URL.Query().Get("asset_id")
	beneficiaryID := r.URL.Query().Get("beneficiary_id")

	entries, err := h.ledgerService.GetChangeHistory(r.Context(), userID, assetID, beneficiaryID)
	if err != nil {
		log.Printf("[AssetHandler:GetHistory] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
