package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// Имена модулей, под которыми сервисы хранят свои снимки.
const (
	ModuleLedger = "ledger"
	ModuleVault  = "vault"
)

// SnapshotRepository определяет методы для работы со снимками состояния модулей.
// Один логический снимок на пару (пользователь, модуль); содержимое непрозрачно
// для репозитория - сериализацию и шифрование выполняет сервисный слой.
type SnapshotRepository interface {
	Save(ctx context.Context, userID int64, module string, data []byte) error
	Load(ctx context.Context, userID int64, module string) ([]byte, error)
}

// postgresSnapshotRepository реализует SnapshotRepository для PostgreSQL.
type postgresSnapshotRepository struct {
	db *sqlx.DB
}

// NewPostgresSnapshotRepository создает новый экземпляр репозитория снимков.
func NewPostgresSnapshotRepository(db *sqlx.DB) SnapshotRepository {
	return &postgresSnapshotRepository{db: db}
}

// Save сохраняет снимок, перезаписывая предыдущий (upsert).
func (r *postgresSnapshotRepository) Save(ctx context.Context, userID int64, module string, data []byte) error {
	query := `INSERT INTO snapshots (user_id, module, data, updated_at)
	          VALUES ($1, $2, $3, now())
	          ON CONFLICT (user_id, module)
	          DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, userID, module, data); err != nil {
		log.Printf("[SnapshotRepo] Ошибка сохранения снимка '%s' для пользователя %d: %v", module, userID, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение снимка: %w", err)
	}

	log.Printf("[SnapshotRepo] Снимок '%s' для пользователя %d сохранен (%d байт)", module, userID, len(data))
	return nil
}

// Load загружает последний сохраненный снимок.
// Возвращает ErrSnapshotNotFound, если снимок еще не сохранялся.
func (r *postgresSnapshotRepository) Load(ctx context.Context, userID int64, module string) ([]byte, error) {
	query := `SELECT data FROM snapshots WHERE user_id=$1 AND module=$2`
	var data []byte

	err := r.db.GetContext(ctx, &data, query, userID, module)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[SnapshotRepo] Снимок '%s' для пользователя %d не найден", module, userID)
			return nil, ErrSnapshotNotFound
		}
		log.Printf("[SnapshotRepo] Ошибка загрузки снимка '%s' для пользователя %d: %v", module, userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на загрузку снимка: %w", err)
	}

	log.Printf("[SnapshotRepo] Снимок '%s' для пользователя %d загружен (%d байт)", module, userID, len(data))
	return data, nil
}

// Кастомная ошибка репозитория.
var (
	ErrSnapshotNotFound = errors.New("снимок состояния не найден")
)
