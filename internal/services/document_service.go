package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/repository"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/storage"
)

// DocumentService определяет интерфейс для работы с документами пользователя
// (завещания, полисы, медицинские распоряжения). Файлы лежат в объектном
// хранилище, метаданные - в БД.
type DocumentService interface {
	UploadDocument(
		ctx context.Context, userID int64, title, category, contentType string, reader io.Reader, size int64,
	) (*models.Document, error)
	ListDocuments(ctx context.Context, userID int64) ([]models.Document, error)
	DownloadDocument(ctx context.Context, userID int64, docID string) (io.ReadCloser, *models.Document, error)
	DeleteDocument(ctx context.Context, userID int64, docID string) error
}

// documentService реализует DocumentService.
var _ DocumentService = (*documentService)(nil) // Проверка соответствия интерфейсу

type documentService struct {
	docRepo     repository.DocumentRepository
	fileStorage storage.FileStorage
}

// NewDocumentService создает новый экземпляр сервиса документов.
func NewDocumentService(docRepo repository.DocumentRepository, fileStorage storage.FileStorage) DocumentService {
	return &documentService{docRepo: docRepo, fileStorage: fileStorage}
}

// UploadDocument загружает файл в объектное хранилище и сохраняет метаданные.
// Контрольная сумма считается на лету во время загрузки.
func (s *documentService) UploadDocument(
	ctx context.Context,
	userID int64,
	title, category, contentType string,
	reader io.Reader,
	size int64,
) (*models.Document, error) {
	docID := uuid.NewString()
	objectKey := fmt.Sprintf("users/%d/documents/%s", userID, docID)

	// Считаем SHA256 по мере чтения тела загрузки
	hasher := sha256.New()
	teeReader := io.TeeReader(reader, hasher)

	if err := s.fileStorage.UploadFile(ctx, objectKey, teeReader, size, contentType); err != nil {
		log.Printf("[DocumentService] Ошибка загрузки файла документа '%s' пользователя %d: %v", title, userID, err)
		return nil, errors.New("внутренняя ошибка сервера при загрузке документа")
	}

	doc := &models.Document{
		ID:          docID,
		UserID:      userID,
		Title:       title,
		Category:    category,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}

	if err := s.docRepo.CreateDocument(ctx, doc); err != nil {
		// Метаданные не записались - убираем осиротевший объект из хранилища
		if delErr := s.fileStorage.DeleteFile(ctx, objectKey); delErr != nil {
			log.Printf("[DocumentService] Не удалось удалить осиротевший объект '%s': %v", objectKey, delErr)
		}
		log.Printf("[DocumentService] Ошибка сохранения метаданных документа '%s' пользователя %d: %v",
			title, userID, err)
		return nil, errors.New("внутренняя ошибка сервера при сохранении документа")
	}

	log.Printf("[DocumentService] Документ '%s' (ID: %s) пользователя %d загружен", title, docID, userID)
	return doc, nil
}

// ListDocuments возвращает метаданные документов пользователя.
func (s *documentService) ListDocuments(ctx context.Context, userID int64) ([]models.Document, error) {
	docs, err := s.docRepo.ListDocumentsByUserID(ctx, userID)
	if err != nil {
		log.Printf("[DocumentService] Ошибка получения списка документов пользователя %d: %v", userID, err)
		return nil, errors.New("внутренняя ошибка сервера при получении списка документов")
	}
	return docs, nil
}

// DownloadDocument возвращает содержимое документа и его метаданные.
// Возвращаемый io.ReadCloser нужно закрыть после использования.
func (s *documentService) DownloadDocument(
	ctx context.Context,
	userID int64,
	docID string,
) (io.ReadCloser, *models.Document, error) {
	doc, err := s.docRepo.GetDocumentByID(ctx, userID, docID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, nil, ErrDocumentNotFound
		}
		log.Printf("[DocumentService] Ошибка репозитория при поиске документа %s: %v", docID, err)
		return nil, nil, errors.New("внутренняя ошибка сервера при поиске документа")
	}

	reader, err := s.fileStorage.DownloadFile(ctx, doc.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// Метаданные есть, а файла нет - рассинхронизация хранилищ
			log.Printf("[DocumentService] Файл документа %s отсутствует в хранилище (key: %s)", docID, doc.ObjectKey)
			return nil, nil, ErrDocumentNotFound
		}
		log.Printf("[DocumentService] Ошибка скачивания файла документа %s: %v", docID, err)
		return nil, nil, errors.New("внутренняя ошибка сервера при скачивании документа")
	}

	return reader, doc, nil
}

// DeleteDocument удаляет документ: сначала файл из хранилища, затем метаданные.
// Ошибка удаления файла не блокирует удаление метаданных.
func (s *documentService) DeleteDocument(ctx context.Context, userID int64, docID string) error {
	doc, err := s.docRepo.GetDocumentByID(ctx, userID, docID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return ErrDocumentNotFound
		}
		log.Printf("[DocumentService] Ошибка репозитория при поиске документа %s: %v", docID, err)
		return errors.New("внутренняя ошибка сервера при поиске документа")
	}

	if err := s.fileStorage.DeleteFile(ctx, doc.ObjectKey); err != nil {
		log.Printf("[DocumentService] Ошибка удаления файла документа %s (key: %s): %v", docID, doc.ObjectKey, err)
	}

	if err := s.docRepo.DeleteDocument(ctx, userID, docID); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return ErrDocumentNotFound
		}
		log.Printf("[DocumentService] Ошибка удаления метаданных документа %s: %v", docID, err)
		return errors.New("внутренняя ошибка сервера при удалении документа")
	}

	log.Printf("[DocumentService] Документ %s пользователя %d удален", docID, userID)
	return nil
}

// Кастомная ошибка сервиса документов.
var (
	ErrDocumentNotFound = errors.New("документ не найден")
)
