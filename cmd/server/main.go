package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL

	"github.com/Hamish-Leahy/iDecide-sub002/internal/handlers"
	appmiddleware "github.com/Hamish-Leahy/iDecide-sub002/internal/middleware"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/repository"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/services"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/storage"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 30 * time.Second

	// Переменные окружения для MinIO (значения по умолчанию из docker-compose).
	envMinioEndpoint     = "MINIO_ENDPOINT"
	envMinioUser         = "MINIO_USER"
	envMinioPassword     = "MINIO_PASSWORD"
	envMinioBucket       = "MINIO_BUCKET"
	defaultMinioEndpoint = "localhost:9000"
	defaultMinioUser     = "minioadmin"
	defaultMinioPassword = "minioadmin"
	defaultMinioBucket   = "idecide-documents"
	minioUseSSL          = false // Для локальной разработки
)

// newPostgresDB вынесена в переменную, чтобы подменять подключение в тестах.
var newPostgresDB = repository.NewPostgresDB

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db              *sqlx.DB
	fileStorage     storage.FileStorage
	assetHandler    *handlers.AssetHandler
	vaultHandler    *handlers.VaultHandler
	documentHandler *handlers.DocumentHandler
	jwtSecret       string
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера iDecide...")

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	// Инициализация зависимостей
	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if deps.db != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
			}
		}
	}()

	// Применяем схему БД при старте
	if err = repository.BootstrapSchema(deps.db); err != nil {
		return fmt.Errorf("ошибка применения схемы БД: %w", err)
	}

	// Настройка роутера
	r := setupRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)
	log.Printf("Используется сертификат: %s", cfg.CertFile)
	log.Printf("Используется ключ: %s", cfg.KeyFile)

	// Запускаем сервер с TLS
	if err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска HTTPS-сервера: %w", err)
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config) (*dependencies, error) {
	deps := &dependencies{jwtSecret: cfg.JWTSecret}
	var err error

	// 1. Подключение к БД
	deps.db, err = newPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	log.Println("Соединение с БД успешно установлено.")

	// 2. Инициализация клиента MinIO
	minioCfg := storage.MinioConfig{
		Endpoint:        getEnv(envMinioEndpoint, defaultMinioEndpoint),
		AccessKeyID:     getEnv(envMinioUser, defaultMinioUser),
		SecretAccessKey: getEnv(envMinioPassword, defaultMinioPassword),
		UseSSL:          minioUseSSL,
		BucketName:      getEnv(envMinioBucket, defaultMinioBucket),
	}
	deps.fileStorage, err = storage.NewMinioClient(minioCfg)
	if err != nil {
		// Закрываем соединение с БД перед выходом
		if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
			log.Printf("Ошибка закрытия соединения с БД при ошибке MinIO: %v", dbCloseErr)
		}
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// 3. Создание репозиториев
	snapshotRepo := repository.NewPostgresSnapshotRepository(deps.db)
	documentRepo := repository.NewPostgresDocumentRepository(deps.db)

	// 4. Создание сервисов
	ledgerService := services.NewLedgerService(snapshotRepo)
	vaultService := services.NewVaultService(snapshotRepo, cfg.SealSecret)
	documentService := services.NewDocumentService(documentRepo, deps.fileStorage)

	// 5. Создание обработчиков
	deps.assetHandler = handlers.NewAssetHandler(ledgerService)
	deps.vaultHandler = handlers.NewVaultHandler(vaultService)
	deps.documentHandler = handlers.NewDocumentHandler(documentService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	// Все маршруты /api требуют аутентификации: учетные записи ведет
	// внешний сервис, сюда приходят уже выданные им токены
	r.Route("/api", func(r chi.Router) {
		r.Use(appmiddleware.NewAuthenticator(deps.jwtSecret))

		// Реестр активов и наследников
		r.Post("/assets", deps.assetHandler.CreateAsset)
		r.Get("/assets", deps.assetHandler.ListAssets)
		r.Get("/assets/{assetID}", deps.assetHandler.GetAsset)
		r.Patch("/assets/{assetID}", deps.assetHandler.UpdateAsset)
		r.Delete("/assets/{assetID}", deps.assetHandler.DeleteAsset)
		r.Post("/assets/{assetID}/beneficiaries", deps.assetHandler.CreateBeneficiary)
		r.Patch("/assets/{assetID}/beneficiaries/{beneficiaryID}", deps.assetHandler.UpdateBeneficiary)
		r.Delete("/assets/{assetID}/beneficiaries/{beneficiaryID}", deps.assetHandler.DeleteBeneficiary)
		r.Get("/assets/{assetID}/allocation", deps.assetHandler.GetAllocation)
		r.Get("/history", deps.assetHandler.GetHistory)

		// Цифровой сейф
		r.Route("/vault", func(r chi.Router) {
			r.Post("/enter", deps.vaultHandler.Enter)
			r.Post("/code", deps.vaultHandler.SetCode)
			r.Post("/unlock", deps.vaultHandler.Unlock)
			r.Post("/lock", deps.vaultHandler.Lock)
			r.Get("/assets", deps.vaultHandler.ListDigitalAssets)
			r.Post("/assets", deps.vaultHandler.CreateDigitalAsset)
			r.Patch("/assets/{id}", deps.vaultHandler.UpdateDigitalAsset)
			r.Delete("/assets/{id}", deps.vaultHandler.DeleteDigitalAsset)
		})

		// Документы
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", deps.documentHandler.Upload)
			r.Get("/", deps.documentHandler.List)
			r.Get("/{id}/download", deps.documentHandler.Download)
			r.Delete("/{id}", deps.documentHandler.Delete)
		})
	})
	return r
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	log.Printf("Переменная окружения '%s' не установлена, используется значение по умолчанию: '%s'", key, fallback)
	return fallback
}
