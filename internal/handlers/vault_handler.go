package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/middleware"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/services"
)

const (
	vaultCodeMinLen = 4
	vaultCodeMaxLen = 8
)

// VaultHandler обрабатывает HTTP-запросы цифрового сейфа: шлюз доступа
// по коду и CRUD записей за ним.
type VaultHandler struct {
	vaultService services.VaultService
}

// NewVaultHandler создает новый экземпляр VaultHandler.
func NewVaultHandler(vs services.VaultService) *VaultHandler {
	return &VaultHandler{vaultService: vs}
}

// sanitizeVaultCode приводит ввод кода к каноническому виду: отбрасывает
// все символы кроме цифр ASCII и обрезает до максимальной длины.
// Именно ASCII: unicode.IsDigit пропустил бы цифры других письменностей.
func sanitizeVaultCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() >= vaultCodeMaxLen {
			break
		}
	}
	return b.String()
}

// decodeVaultCode читает тело запроса с кодом и санитизирует его.
// Возвращает ошибку клиенту, если после очистки код короче минимума.
func decodeVaultCode(w http.ResponseWriter, r *http.Request, logPrefix string) (string, bool) {
	var req models.VaultCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("%s Ошибка декодирования запроса: %v", logPrefix, err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return "", false
	}

	code := sanitizeVaultCode(req.Code)
	if len(code) < vaultCodeMinLen {
		http.Error(w, "Код должен содержать от 4 до 8 цифр", http.StatusBadRequest)
		return "", false
	}
	return code, true
}

// Enter обрабатывает POST запрос на вход в раздел сейфа.
// Вход всегда запирает шлюз: код переспрашивается при каждом посещении.
func (h *VaultHandler) Enter(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:Enter] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	status, err := h.vaultService.Enter(r.Context(), userID)
	if err != nil {
		log.Printf("[VaultHandler:Enter] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// SetCode обрабатывает POST запрос на первичную установку кода доступа.
func (h *VaultHandler) SetCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:SetCode] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	code, ok := decodeVaultCode(w, r, "[VaultHandler:SetCode]")
	if !ok {
		return
	}

	if err := h.vaultService.SetCode(r.Context(), userID, code); err != nil {
		if errors.Is(err, services.ErrVaultAlreadyConfigured) {
			http.Error(w, "Код доступа уже установлен", http.StatusConflict)
			return
		}
		log.Printf("[VaultHandler:SetCode] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	log.Printf("[VaultHandler:SetCode] Код доступа установлен пользователем %d", userID)
	// Установка кода сразу открывает сейф
	writeJSON(w, http.StatusOK, models.UnlockResponse{Unlocked: true})
}

// Unlock обрабатывает POST запрос на разблокировку сейфа кодом.
func (h *VaultHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:Unlock] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	code, ok := decodeVaultCode(w, r, "[VaultHandler:Unlock]")
	if !ok {
		return
	}

	if err := h.vaultService.Unlock(r.Context(), userID, code); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidVaultCode):
			log.Printf("[VaultHandler:Unlock] Неверный код доступа от пользователя %d", userID)
			writeJSON(w, http.StatusForbidden, models.UnlockResponse{Unlocked: false})
		case errors.Is(err, services.ErrVaultNotConfigured):
			http.Error(w, "Код доступа еще не установлен", http.StatusConflict)
		default:
			log.Printf("[VaultHandler:Unlock] Внутренняя ошибка для пользователя %d: %v", userID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.UnlockResponse{Unlocked: true})
}

// Lock обрабатывает POST запрос на запирание сейфа.
func (h *VaultHandler) Lock(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:Lock] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	if err := h.vaultService.Lock(r.Context(), userID); err != nil {
		log.Printf("[VaultHandler:Lock] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeVaultAccessError транслирует ошибки шлюза сейфа в HTTP-статусы.
// Возвращает false, если ошибка не относится к шлюзу.
func writeVaultAccessError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, services.ErrVaultLocked):
		http.Error(w, "Сейф заперт", http.StatusLocked)
	case errors.Is(err, services.ErrVaultNotConfigured):
		http.Error(w, "Код доступа еще не установлен", http.StatusConflict)
	default:
		return false
	}
	return true
}

// ListDigitalAssets обрабатывает GET запрос на список записей сейфа.
func (h *VaultHandler) ListDigitalAssets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:ListDigitalAssets] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assets, err := h.vaultService.ListDigitalAssets(r.Context(), userID)
	if err != nil {
		if writeVaultAccessError(w, err) {
			return
		}
		log.Printf("[VaultHandler:ListDigitalAssets] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, assets)
}

// CreateDigitalAsset обрабатывает POST запрос на добавление записи в сейф.
func (h *VaultHandler) CreateDigitalAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:CreateDigitalAsset] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	var req models.DigitalAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[VaultHandler:CreateDigitalAsset] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if !req.Category.Valid() {
		http.Error(w, "Неизвестная категория записи", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Поле title обязательно", http.StatusBadRequest)
		return
	}

	asset, err := h.vaultService.AddDigitalAsset(r.Context(), userID, req)
	if err != nil {
		if writeVaultAccessError(w, err) {
			return
		}
		log.Printf("[VaultHandler:CreateDigitalAsset] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	log.Printf("[VaultHandler:CreateDigitalAsset] Запись '%s' (ID: %s) добавлена пользователем %d",
		asset.Title, asset.ID, userID)
	writeJSON(w, http.StatusCreated, asset)
}

// UpdateDigitalAsset обрабатывает PATCH запрос на обновление записи сейфа.
func (h *VaultHandler) UpdateDigitalAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:UpdateDigitalAsset] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "id")

	var req models.DigitalAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[VaultHandler:UpdateDigitalAsset] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, "Поле title обязательно", http.StatusBadRequest)
		return
	}

	asset, err := h.vaultService.UpdateDigitalAsset(r.Context(), userID, assetID, req)
	if err != nil {
		if writeVaultAccessError(w, err) {
			return
		}
		if errors.Is(err, services.ErrDigitalAssetNotFound) {
			http.Error(w, "Запись не найдена", http.StatusNotFound)
			return
		}
		log.Printf("[VaultHandler:UpdateDigitalAsset] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

// DeleteDigitalAsset обрабатывает DELETE запрос на удаление записи сейфа.
func (h *VaultHandler) DeleteDigitalAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:DeleteDigitalAsset] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	assetID := chi.URLParam(r, "id")

	if err := h.vaultService.RemoveDigitalAsset(r.Context(), userID, assetID); err != nil {
		if writeVaultAccessError(w, err) {
			return
		}
		if errors.Is(err, services.ErrDigitalAssetNotFound) {
			http.Error(w, "Запись не найдена", http.StatusNotFound)
			return
		}
		log.Printf("[VaultHandler:DeleteDigitalAsset] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	log.Printf("[VaultHandler:DeleteDigitalAsset] Запись %s удалена пользователем %d", assetID, userID)
	w.WriteHeader(http.StatusNoContent)
}
