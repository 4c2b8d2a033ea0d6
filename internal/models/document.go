package models

import "time"

// Document представляет метаданные загруженного документа пользователя
// (юридического, финансового или медицинского). Сам файл хранится
// в объектном хранилище, здесь только ссылка на него.
// Тэги `db` используются для маппинга с полями БД с помощью sqlx.
type Document struct {
	ID          string    `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	ObjectKey   string    `db:"object_key" json:"-"` // Ключ в S3/MinIO не отдаем наружу
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	Checksum    string    `db:"checksum" json:"checksum"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
