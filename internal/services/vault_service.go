package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hamish-Leahy/iDecide-sub002/internal/cryptox"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/repository"
)

// VaultService определяет интерфейс цифрового сейфа: числовой код-шлюз
// и CRUD записей за ним. Доступ к записям возможен только в разблокированном
// состоянии; при каждом входе в раздел шлюз принудительно запирается.
type VaultService interface {
	// Enter фиксирует вход в раздел сейфа: принудительно запирает шлюз
	// и возвращает его состояние. Политика "переспрашивать код при каждом
	// посещении" реализована именно здесь.
	Enter(ctx context.Context, userID int64) (*models.VaultStatus, error)
	// SetCode устанавливает код доступа при первом использовании и сразу
	// переводит сейф в разблокированное состояние (отдельный unlock не нужен).
	SetCode(ctx context.Context, userID int64, code string) error
	// Unlock сверяет кандидата с установленным кодом.
	Unlock(ctx context.Context, userID int64, candidate string) error
	// Lock запирает сейф безусловно.
	Lock(ctx context.Context, userID int64) error

	ListDigitalAssets(ctx context.Context, userID int64) ([]models.DigitalAsset, error)
	AddDigitalAsset(ctx context.Context, userID int64, req models.DigitalAssetRequest) (*models.DigitalAsset, error)
	UpdateDigitalAsset(
		ctx context.Context, userID int64, assetID string, req models.DigitalAssetRequest,
	) (*models.DigitalAsset, error)
	RemoveDigitalAsset(ctx context.Context, userID int64, assetID string) error
}

// Состояние сейфа одного пользователя. Флаг locked при любой загрузке
// из снимка принудительно выставляется в true.
type vaultState struct {
	assets   []models.DigitalAsset
	codeHash *string
	locked   bool
}

// vaultService реализует VaultService.
var _ VaultService = (*vaultService)(nil) // Проверка соответствия интерфейсу

type vaultService struct {
	mu        sync.Mutex
	states    map[int64]*vaultState
	snapshots repository.SnapshotRepository
	// Ключ AES-256 для запечатывания снимка: записи сейфа содержат
	// учетные данные и не хранятся в БД открытым текстом.
	sealKey []byte
}

// NewVaultService создает новый экземпляр сервиса сейфа.
func NewVaultService(snapshots repository.SnapshotRepository, sealSecret string) VaultService {
	return &vaultService{
		states:    make(map[int64]*vaultState),
		snapshots: snapshots,
		sealKey:   cryptox.DeriveKey(sealSecret),
	}
}

// state возвращает состояние сейфа пользователя, при первом обращении
// восстанавливая его из запечатанного снимка. Вызывается только под мьютексом.
func (s *vaultService) state(ctx context.Context, userID int64) (*vaultState, error) {
	if st, ok := s.states[userID]; ok {
		return st, nil
	}

	st := &vaultState{assets: []models.DigitalAsset{}, locked: true}

	sealed, err := s.snapshots.Load(ctx, userID, repository.ModuleVault)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		// Сейф еще не использовался
	case err != nil:
		return nil, fmt.Errorf("ошибка восстановления сейфа: %w", err)
	default:
		data, openErr := cryptox.Open(sealed, s.sealKey)
		if openErr != nil {
			return nil, fmt.Errorf("ошибка распечатывания снимка сейфа: %w", openErr)
		}
		var snap models.VaultSnapshot
		if unmarshalErr := json.Unmarshal(data, &snap); unmarshalErr != nil {
			return nil, fmt.Errorf("ошибка разбора снимка сейфа: %w", unmarshalErr)
		}
		if snap.Assets != nil {
			st.assets = snap.Assets
		}
		st.codeHash = snap.VaultCode
		// Независимо от сохраненного значения флага сейф после загрузки заперт
		st.locked = true
		log.Printf("[VaultService] Сейф пользователя %d восстановлен: %d записей, код установлен: %t",
			userID, len(st.assets), st.codeHash != nil)
	}

	s.states[userID] = st
	return st, nil
}

// persist запечатывает и зеркалирует состояние сейфа.
// Инвариант "после перезагрузки сейф заперт" обеспечивается структурно:
// в снимок всегда пишется is_vault_locked=true, каким бы ни был флаг в памяти.
func (s *vaultService) persist(ctx context.Context, userID int64, st *vaultState) {
	snap := models.VaultSnapshot{
		Assets:        st.assets,
		VaultCode:     st.codeHash,
		IsVaultLocked: true,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[VaultService] Ошибка сериализации снимка сейфа пользователя %d: %v", userID, err)
		return
	}
	sealed, err := cryptox.Seal(data, s.sealKey)
	if err != nil {
		log.Printf("[VaultService] Ошибка запечатывания снимка сейфа пользователя %d: %v", userID, err)
		return
	}
	if err := s.snapshots.Save(ctx, userID, repository.ModuleVault, sealed); err != nil {
		log.Printf("[VaultService] Ошибка зеркалирования сейфа пользователя %d: %v", userID, err)
	}
}

// gate проверяет, что доступ к записям сейфа открыт.
func (s *vaultService) gate(st *vaultState) error {
	if st.codeHash == nil {
		return ErrVaultNotConfigured
	}
	if st.locked {
		return ErrVaultLocked
	}
	return nil
}

// Enter принудительно запирает шлюз и возвращает его состояние.
func (s *vaultService) Enter(ctx context.Context, userID int64) (*models.VaultStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	st.locked = true
	log.Printf("[VaultService] Вход в раздел сейфа пользователя %d: шлюз заперт", userID)

	return &models.VaultStatus{Configured: st.codeHash != nil, Locked: st.locked}, nil
}

// SetCode устанавливает код доступа. Операция допустима ровно один раз:
// после установки код меняется только через сравнение в Unlock и никогда
// не перезаписывается молча.
func (s *vaultService) SetCode(ctx context.Context, userID int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return err
	}

	if st.codeHash != nil {
		log.Printf("[VaultService] Попытка повторной установки кода сейфа пользователем %d", userID)
		return ErrVaultAlreadyConfigured
	}

	// Код не храним открытым текстом даже внутри запечатанного снимка
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[VaultService] Ошибка хеширования кода сейфа пользователя %d: %v", userID, err)
		return errors.New("внутренняя ошибка сервера при установке кода")
	}

	hashStr := string(hash)
	st.codeHash = &hashStr
	// Первичная установка кода считается входом в разблокированное состояние
	st.locked = false
	s.persist(ctx, userID, st)

	log.Printf("[VaultService] Код сейфа установлен для пользователя %d, сейф разблокирован", userID)
	return nil
}

// Unlock сверяет кандидата с установленным кодом. Кандидат приходит уже
// санитизированным (только цифры, 4-8 символов) - это зона ответственности
// обработчика. Ограничения на число попыток нет.
func (s *vaultService) Unlock(ctx context.Context, userID int64, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return err
	}

	if st.codeHash == nil {
		return ErrVaultNotConfigured
	}

	if bcrypt.CompareHashAndPassword([]byte(*st.codeHash), []byte(candidate)) != nil {
		log.Printf("[VaultService] Неверный код сейфа от пользователя %d", userID)
		return ErrInvalidVaultCode // Состояние остается запертым
	}

	st.locked = false
	log.Printf("[VaultService] Сейф пользователя %d разблокирован", userID)
	return nil
}

// Lock запирает сейф безусловно; для ненастроенного сейфа это no-op
// по наблюдаемому поведению (флаг просто остается true).
func (s *vaultService) Lock(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return err
	}

	st.locked = true
	log.Printf("[VaultService] Сейф пользователя %d заперт", userID)
	return nil
}

// ListDigitalAssets возвращает копию списка записей сейфа.
func (s *vaultService) ListDigitalAssets(ctx context.Context, userID int64) ([]models.DigitalAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(st); err != nil {
		return nil, err
	}

	assets := make([]models.DigitalAsset, len(st.assets))
	copy(assets, st.assets)
	return assets, nil
}

// AddDigitalAsset добавляет запись в сейф.
func (s *vaultService) AddDigitalAsset(
	ctx context.Context,
	userID int64,
	req models.DigitalAssetRequest,
) (*models.DigitalAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(st); err != nil {
		return nil, err
	}

	now := time.Now()
	asset := models.DigitalAsset{
		ID:            uuid.NewString(),
		Category:      req.Category,
		Title:         req.Title,
		Username:      req.Username,
		Password:      req.Password,
		URL:           req.URL,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		RoutingNumber: req.RoutingNumber,
		Network:       req.Network,
		WalletAddress: req.WalletAddress,
		Note:          req.Note,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	st.assets = append(st.assets, asset)
	s.persist(ctx, userID, st)

	log.Printf("[VaultService] Запись '%s' (%s) добавлена в сейф пользователя %d", asset.Title, asset.Category, userID)
	a := asset
	return &a, nil
}

// UpdateDigitalAsset обновляет запись сейфа. Категория записи не меняется.
func (s *vaultService) UpdateDigitalAsset(
	ctx context.Context,
	userID int64,
	assetID string,
	req models.DigitalAssetRequest,
) (*models.DigitalAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(st); err != nil {
		return nil, err
	}

	for i := range st.assets {
		if st.assets[i].ID != assetID {
			continue
		}
		asset := &st.assets[i]
		asset.Title = req.Title
		asset.Username = req.Username
		asset.Password = req.Password
		asset.URL = req.URL
		asset.BankName = req.BankName
		asset.AccountNumber = req.AccountNumber
		asset.RoutingNumber = req.RoutingNumber
		asset.Network = req.Network
		asset.WalletAddress = req.WalletAddress
		asset.Note = req.Note
		asset.UpdatedAt = time.Now()
		s.persist(ctx, userID, st)

		a := *asset
		return &a, nil
	}

	log.Printf("[VaultService] Обновление несуществующей записи %s сейфа пользователя %d", assetID, userID)
	return nil, ErrDigitalAssetNotFound
}

// RemoveDigitalAsset удаляет запись сейфа.
func (s *vaultService) RemoveDigitalAsset(ctx context.Context, userID int64, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.gate(st); err != nil {
		return err
	}

	for i := range st.assets {
		if st.assets[i].ID == assetID {
			st.assets = append(st.assets[:i], st.assets[i+1:]...)
			s.persist(ctx, userID, st)
			log.Printf("[VaultService] Запись %s удалена из сейфа пользователя %d", assetID, userID)
			return nil
		}
	}

	log.Printf("[VaultService] Удаление несуществующей записи %s сейфа пользователя %d", assetID, userID)
	return ErrDigitalAssetNotFound
}

// Кастомные ошибки сервиса сейфа.
var (
	ErrVaultNotConfigured     = errors.New("код сейфа еще не установлен")
	ErrVaultAlreadyConfigured = errors.New("код сейфа уже установлен")
	ErrVaultLocked            = errors.New("сейф заперт")
	ErrInvalidVaultCode       = errors.New("неверный код сейфа")
	ErrDigitalAssetNotFound   = errors.New("запись сейфа не найдена")
)
