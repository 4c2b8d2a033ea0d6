package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
)

// DocumentRepository определяет методы для работы с метаданными документов.
// Сами файлы лежат в объектном хранилище, здесь только учетные записи о них.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, userID int64, docID string) (*models.Document, error)
	ListDocumentsByUserID(ctx context.Context, userID int64) ([]models.Document, error)
	DeleteDocument(ctx context.Context, userID int64, docID string) error
}

// postgresDocumentRepository реализует DocumentRepository для PostgreSQL.
type postgresDocumentRepository struct {
	db *sqlx.DB
}

// NewPostgresDocumentRepository создает новый экземпляр репозитория документов.
func NewPostgresDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &postgresDocumentRepository{db: db}
}

// CreateDocument сохраняет метаданные загруженного документа.
func (r *postgresDocumentRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `INSERT INTO documents (id, user_id, title, category, object_key, content_type, size_bytes, checksum)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.UserID, doc.Title, doc.Category, doc.ObjectKey, doc.ContentType, doc.SizeBytes, doc.Checksum)
	if err != nil {
		log.Printf("[DocumentRepo] Ошибка создания записи о документе '%s' для пользователя %d: %v",
			doc.Title, doc.UserID, err)
		return fmt.Errorf("ошибка выполнения запроса на создание документа: %w", err)
	}

	log.Printf("[DocumentRepo] Документ '%s' (ID: %s) для пользователя %d создан", doc.Title, doc.ID, doc.UserID)
	return nil
}

// GetDocumentByID находит метаданные документа по ID.
// Запрос всегда ограничен владельцем, чтобы нельзя было прочитать чужой документ.
func (r *postgresDocumentRepository) GetDocumentByID(
	ctx context.Context,
	userID int64,
	docID string,
) (*models.Document, error) {
	query := `SELECT id, user_id, title, category, object_key, content_type, size_bytes, checksum, created_at
	          FROM documents WHERE id=$1 AND user_id=$2`
	var doc models.Document

	err := r.db.GetContext(ctx, &doc, query, docID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[DocumentRepo] Документ %s для пользователя %d не найден", docID, userID)
			return nil, ErrDocumentNotFound
		}
		log.Printf("[DocumentRepo] Ошибка при поиске документа %s: %v", docID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение документа: %w", err)
	}

	return &doc, nil
}

// ListDocumentsByUserID возвращает метаданные всех документов пользователя,
// новые первыми.
func (r *postgresDocumentRepository) ListDocumentsByUserID(
	ctx context.Context,
	userID int64,
) ([]models.Document, error) {
	query := `SELECT id, user_id, title, category, object_key, content_type, size_bytes, checksum, created_at
	          FROM documents WHERE user_id=$1 ORDER BY created_at DESC`
	docs := []models.Document{}

	if err := r.db.SelectContext(ctx, &docs, query, userID); err != nil {
		log.Printf("[DocumentRepo] Ошибка получения списка документов пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на список документов: %w", err)
	}

	log.Printf("[DocumentRepo] Найдено %d документов для пользователя %d", len(docs), userID)
	return docs, nil
}

// DeleteDocument удаляет метаданные документа.
// Возвращает ErrDocumentNotFound, если у пользователя нет такого документа.
func (r *postgresDocumentRepository) DeleteDocument(ctx context.Context, userID int64, docID string) error {
	query := `DELETE FROM documents WHERE id=$1 AND user_id=$2`

	res, err := r.db.ExecContext(ctx, query, docID, userID)
	if err != nil {
		log.Printf("[DocumentRepo] Ошибка удаления документа %s пользователя %d: %v", docID, userID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление документа: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества удаленных строк: %w", err)
	}
	if affected == 0 {
		return ErrDocumentNotFound
	}

	log.Printf("[DocumentRepo] Документ %s пользователя %d удален", docID, userID)
	return nil
}

// Кастомная ошибка репозитория.
var (
	ErrDocumentNotFound = errors.New("документ не найден")
)
