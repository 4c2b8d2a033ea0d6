package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/middleware"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/services"
)

// DocumentHandler обрабатывает HTTP-запросы документов пользователя:
// загрузка, список, скачивание и удаление.
type DocumentHandler struct {
	documentService services.DocumentService
}

// NewDocumentHandler создает новый экземпляр DocumentHandler.
func NewDocumentHandler(ds services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: ds}
}

// Upload обрабатывает POST запрос на загрузку документа.
// Тело запроса - бинарное содержимое файла; название и категория
// передаются в заголовках X-Document-Title и X-Document-Category.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[DocumentHandler:Upload] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	title := r.Header.Get("X-Document-Title")
	if title == "" {
		http.Error(w, "Отсутствует заголовок X-Document-Title", http.StatusBadRequest)
		return
	}
	category := r.Header.Get("X-Document-Category")
	if category == "" {
		category = "other"
	}

	// Размер берем из Content-Length
	sizeStr := r.Header.Get("Content-Length")
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil || size <= 0 {
		log.Printf("[DocumentHandler:Upload] Неверный или отсутствующий заголовок Content-Length: %s", sizeStr)
		http.Error(w, "Неверный или отсутствующий заголовок Content-Length", http.StatusBadRequest)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		// По умолчанию считаем бинарным потоком
		contentType = "application/octet-stream"
	}

	doc, err := h.documentService.UploadDocument(r.Context(), userID, title, category, contentType, r.Body, size)
	if err != nil {
		log.Printf("[DocumentHandler:Upload] Ошибка сервиса при загрузке документа пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера при загрузке документа", http.StatusInternalServerError)
		return
	}

	log.Printf("[DocumentHandler:Upload] Документ '%s' (ID: %s) пользователя %d успешно загружен",
		doc.Title, doc.ID, userID)
	writeJSON(w, http.StatusCreated, doc)
}

// List обрабатывает GET запрос на получение метаданных документов.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[DocumentHandler:List] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	docs, err := h.documentService.ListDocuments(r.Context(), userID)
	if err != nil {
		log.Printf("[DocumentHandler:List] Внутренняя ошибка для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// Download обрабатывает GET запрос на скачивание содержимого документа.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[DocumentHandler:Download] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	docID := chi.URLParam(r, "id")

	reader, doc, err := h.documentService.DownloadDocument(r.Context(), userID, docID)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			http.Error(w, "Документ не найден", http.StatusNotFound)
			return
		}
		log.Printf("[DocumentHandler:Download] Внутренняя ошибка при скачивании "+
			"документа %s пользователя %d: %v", docID, userID, err)
		http.Error(w, "Внутренняя ошибка сервера при скачивании документа", http.StatusInternalServerError)
		return
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			log.Printf("[DocumentHandler:Download] Ошибка закрытия reader: %v", closeErr)
		}
	}()

	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Title+`"`)
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if doc.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}

	if _, err = io.Copy(w, reader); err != nil {
		log.Printf("[DocumentHandler:Download] Ошибка копирования данных документа %s в ответ: %v", docID, err)
		return
	}

	log.Printf("[DocumentHandler:Download] Документ %s пользователя %d успешно отправлен", docID, userID)
}

// Delete обрабатывает DELETE запрос на удаление документа.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[DocumentHandler:Delete] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	docID := chi.URLParam(r, "id")

	if err := h.documentService.DeleteDocument(r.Context(), userID, docID); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			http.Error(w, "Документ не найден", http.StatusNotFound)
			return
		}
		log.Printf("[DocumentHandler:Delete] Внутренняя ошибка при удалении "+
			"документа %s пользователя %d: %v", docID, userID, err)
		http.Error(w, "Внутренняя ошибка сервера при удалении документа", http.StatusInternalServerError)
		return
	}

	log.Printf("[DocumentHandler:Delete] Документ %s пользователя %d удален", docID, userID)
	w.WriteHeader(http.StatusNoContent)
}
