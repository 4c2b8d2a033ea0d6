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

	"github.com/Hamish-Leahy/iDecide-sub002/internal/models"
	"github.com/Hamish-Leahy/iDecide-sub002/internal/repository"
)

// LedgerService определяет интерфейс реестра выгодоприобретателей:
// активы, их выгодоприобретатели, журнал изменений и проверка долей.
type LedgerService interface {
	AddAsset(ctx context.Context, userID int64, req models.CreateAssetRequest) (*models.Asset, error)
	ListAssets(ctx context.Context, userID int64) ([]models.Asset, error)
	GetAsset(ctx context.Context, userID int64, assetID string) (*models.Asset, error)
	UpdateAsset(ctx context.Context, userID int64, assetID string, req models.UpdateAssetRequest) (*models.Asset, error)
	RemoveAsset(ctx context.Context, userID int64, assetID string) error

	AddBeneficiary(
		ctx context.Context, userID int64, assetID string, req models.CreateBeneficiaryRequest,
	) (*models.Beneficiary, error)
	UpdateBeneficiary(
		ctx context.Context, userID int64, assetID, beneficiaryID string, req models.UpdateBeneficiaryRequest,
	) (*models.Beneficiary, error)
	RemoveBeneficiary(ctx context.Context, userID int64, assetID, beneficiaryID string) error

	ValidateBeneficiaryPercentages(ctx context.Context, userID int64, assetID string) (*models.AllocationStatus, error)
	// GetChangeHistory возвращает записи журнала от новых к старым.
	// Пустая строка означает отсутствие фильтра; оба фильтра объединяются по И.
	GetChangeHistory(ctx context.Context, userID int64, assetID, beneficiaryID string) ([]models.ChangeLogEntry, error)
}

// Состояние реестра одного пользователя, целиком живет в памяти
// и зеркалируется в хранилище снимков после каждой мутации.
type ledgerState struct {
	assets    []models.Asset
	changeLog []models.ChangeLogEntry
}

// ledgerService реализует LedgerService.
var _ LedgerService = (*ledgerService)(nil) // Проверка соответствия интерфейсу

type ledgerService struct {
	mu        sync.Mutex
	states    map[int64]*ledgerState
	snapshots repository.SnapshotRepository
}

// NewLedgerService создает новый экземпляр сервиса реестра.
// Сервис создается один раз при старте приложения и передается обработчикам
// по ссылке - никакого глобального состояния на уровне пакета.
func NewLedgerService(snapshots repository.SnapshotRepository) LedgerService {
	return &ledgerService{
		states:    make(map[int64]*ledgerState),
		snapshots: snapshots,
	}
}

// state возвращает состояние реестра пользователя, при первом обращении
// восстанавливая его из снимка. Вызывается только под мьютексом.
func (s *ledgerService) state(ctx context.Context, userID int64) (*ledgerState, error) {
	if st, ok := s.states[userID]; ok {
		return st, nil
	}

	st := &ledgerState{assets: []models.Asset{}, changeLog: []models.ChangeLogEntry{}}

	data, err := s.snapshots.Load(ctx, userID, repository.ModuleLedger)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		// Первое обращение пользователя - начинаем с пустого реестра
	case err != nil:
		return nil, fmt.Errorf("ошибка восстановления реестра: %w", err)
	default:
		var snap models.LedgerSnapshot
		if unmarshalErr := json.Unmarshal(data, &snap); unmarshalErr != nil {
			return nil, fmt.Errorf("ошибка разбора снимка реестра: %w", unmarshalErr)
		}
		if snap.Assets != nil {
			st.assets = snap.Assets
		}
		if snap.ChangeLog != nil {
			st.changeLog = snap.ChangeLog
		}
		log.Printf("[LedgerService] Реестр пользователя %d восстановлен: %d активов, %d записей журнала",
			userID, len(st.assets), len(st.changeLog))
	}

	s.states[userID] = st
	return st, nil
}

// persist зеркалирует состояние в хранилище снимков.
// Мутация в памяти уже применена, поэтому ошибка сохранения не фатальна
// для вызывающего - логируем и продолжаем.
func (s *ledgerService) persist(ctx context.Context, userID int64, st *ledgerState) {
	data, err := json.Marshal(models.LedgerSnapshot{Assets: st.assets, ChangeLog: st.changeLog})
	if err != nil {
		log.Printf("[LedgerService] Ошибка сериализации снимка реестра пользователя %d: %v", userID, err)
		return
	}
	if err := s.snapshots.Save(ctx, userID, repository.ModuleLedger, data); err != nil {
		log.Printf("[LedgerService] Ошибка зеркалирования реестра пользователя %d: %v", userID, err)
	}
}

// findAsset возвращает указатель на актив в состоянии или nil.
func (st *ledgerState) findAsset(assetID string) *models.Asset {
	for i := range st.assets {
		if st.assets[i].ID == assetID {
			return &st.assets[i]
		}
	}
	return nil
}

// appendLog добавляет запись в журнал изменений. Журнал только растет,
// записи никогда не редактируются и не удаляются.
func (st *ledgerState) appendLog(assetID, beneficiaryID string, action models.ChangeAction, changes map[string]any) {
	st.changeLog = append(st.changeLog, models.ChangeLogEntry{
		ID:            uuid.NewString(),
		AssetID:       assetID,
		BeneficiaryID: beneficiaryID,
		Action:        action,
		Changes:       changes,
		Timestamp:     time.Now(),
	})
}

// AddAsset создает актив с пустой коллекцией выгодоприобретателей.
// Значение Value не валидируется - это свободный текст.
func (s *ledgerService) AddAsset(
	ctx context.Context,
	userID int64,
	req models.CreateAssetRequest,
) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	asset := models.Asset{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Type:          req.Type,
		Value:         req.Value,
		Beneficiaries: []models.Beneficiary{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	st.assets = append(st.assets, asset)
	s.persist(ctx, userID, st)

	log.Printf("[LedgerService] Актив '%s' (ID: %s) создан для пользователя %d", asset.Name, asset.ID, userID)
	return copyAsset(&asset), nil
}

// ListAssets возвращает копию списка активов пользователя.
func (s *ledgerService) ListAssets(ctx context.Context, userID int64) ([]models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	assets := make([]models.Asset, 0, len(st.assets))
	for i := range st.assets {
		assets = append(assets, *copyAsset(&st.assets[i]))
	}
	return assets, nil
}

// GetAsset возвращает актив по ID.
func (s *ledgerService) GetAsset(ctx context.Context, userID int64, assetID string) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	asset := st.findAsset(assetID)
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	return copyAsset(asset), nil
}

// UpdateAsset сливает переданные поля в актив.
// Отсутствующий актив - явная ошибка, а не тихий no-op.
func (s *ledgerService) UpdateAsset(
	ctx context.Context,
	userID int64,
	assetID string,
	req models.UpdateAssetRequest,
) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	asset := st.findAsset(assetID)
	if asset == nil {
		log.Printf("[LedgerService] Обновление несуществующего актива %s пользователя %d", assetID, userID)
		return nil, ErrAssetNotFound
	}

	if req.Name != nil {
		asset.Name = *req.Name
	}
	if req.Type != nil {
		asset.Type = *req.Type
	}
	if req.Value != nil {
		asset.Value = *req.Value
	}
	asset.UpdatedAt = time.Now()
	s.persist(ctx, userID, st)

	return copyAsset(asset), nil
}

// RemoveAsset удаляет актив вместе с его выгодоприобретателями.
// Каскадные записи в журнал изменений не создаются: журнал фиксирует
// только мутации уровня выгодоприобретателя.
func (s *ledgerService) RemoveAsset(ctx context.Context, userID int64, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return err
	}

	for i := range st.assets {
		if st.assets[i].ID == assetID {
			st.assets = append(st.assets[:i], st.assets[i+1:]...)
			s.persist(ctx, userID, st)
			log.Printf("[LedgerService] Актив %s пользователя %d удален", assetID, userID)
			return nil
		}
	}

	log.Printf("[LedgerService] Удаление несуществующего актива %s пользователя %d", assetID, userID)
	return ErrAssetNotFound
}

// AddBeneficiary добавляет выгодоприобретателя к активу и пишет запись `add`
// с полной новой записью в журнал. Валидация обязательных полей - зона
// ответственности слоя форм (обработчика); сервис принимает данные как есть
// и не блокирует "временно невалидные" распределения долей.
func (s *ledgerService) AddBeneficiary(
	ctx context.Context,
	userID int64,
	assetID string,
	req models.CreateBeneficiaryRequest,
) (*models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	asset := st.findAsset(assetID)
	if asset == nil {
		return nil, ErrAssetNotFound
	}

	now := time.Now()
	beneficiary := models.Beneficiary{
		ID:           uuid.NewString(),
		Type:         req.Type,
		FullName:     req.FullName,
		Relationship: req.Relationship,
		DateOfBirth:  req.DateOfBirth,
		GovernmentID: req.GovernmentID,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Percentage:   req.Percentage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	asset.Beneficiaries = append(asset.Beneficiaries, beneficiary)
	asset.UpdatedAt = now

	st.appendLog(assetID, beneficiary.ID, models.ChangeActionAdd, recordToMap(beneficiary))
	s.persist(ctx, userID, st)

	log.Printf("[LedgerService] Выгодоприобретатель '%s' (ID: %s) добавлен к активу %s",
		beneficiary.FullName, beneficiary.ID, assetID)
	b := beneficiary
	return &b, nil
}

// UpdateBeneficiary сливает переданные поля и пишет запись `update`,
// содержащую только измененные поля, а не полную запись.
func (s *ledgerService) UpdateBeneficiary(
	ctx context.Context,
	userID int64,
	assetID, beneficiaryID string,
	req models.UpdateBeneficiaryRequest,
) (*models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	asset := st.findAsset(assetID)
	if asset == nil {
		return nil, ErrAssetNotFound
	}

	var beneficiary *models.Beneficiary
	for i := range asset.Beneficiaries {
		if asset.Beneficiaries[i].ID == beneficiaryID {
			beneficiary = &asset.Beneficiaries[i]
			break
		}
	}
	if beneficiary == nil {
		log.Printf("[LedgerService] Обновление несуществующего выгодоприобретателя %s актива %s",
			beneficiaryID, assetID)
		return nil, ErrBeneficiaryNotFound
	}

	changes := make(map[string]any)
	if req.Type != nil {
		beneficiary.Type = *req.Type
		changes["type"] = string(*req.Type)
	}
	if req.FullName != nil {
		beneficiary.FullName = *req.FullName
		changes["full_name"] = *req.FullName
	}
	if req.Relationship != nil {
		beneficiary.Relationship = *req.Relationship
		changes["relationship"] = *req.Relationship
	}
	if req.DateOfBirth != nil {
		beneficiary.DateOfBirth = *req.DateOfBirth
		changes["date_of_birth"] = *req.DateOfBirth
	}
	if req.GovernmentID != nil {
		beneficiary.GovernmentID = *req.GovernmentID
		changes["government_id"] = *req.GovernmentID
	}
	if req.Email != nil {
		beneficiary.Email = *req.Email
		changes["email"] = *req.Email
	}
	if req.Phone != nil {
		beneficiary.Phone = *req.Phone
		changes["phone"] = *req.Phone
	}
	if req.Address != nil {
		beneficiary.Address = *req.Address
		changes["address"] = *req.Address
	}
	if req.Percentage != nil {
		beneficiary.Percentage = *req.Percentage
		changes["percentage"] = *req.Percentage
	}

	now := time.Now()
	beneficiary.UpdatedAt = now
	asset.UpdatedAt = now

	st.appendLog(assetID, beneficiaryID, models.ChangeActionUpdate, changes)
	s.persist(ctx, userID, st)

	b := *beneficiary
	return &b, nil
}

// RemoveBeneficiary удаляет выгодоприобретателя из коллекции актива.
// Запись `remove` в журнал пишется всегда - даже если выгодоприобретатель
// уже отсутствовал (тогда со снимком в виде пустого объекта); в этом случае
// вызывающему дополнительно сообщается ErrBeneficiaryNotFound.
func (s *ledgerService) RemoveBeneficiary(ctx context.Context, userID int64, assetID, beneficiaryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return err
	}

	asset := st.findAsset(assetID)
	if asset == nil {
		return ErrAssetNotFound
	}

	for i := range asset.Beneficiaries {
		if asset.Beneficiaries[i].ID == beneficiaryID {
			removed := asset.Beneficiaries[i]
			asset.Beneficiaries = append(asset.Beneficiaries[:i], asset.Beneficiaries[i+1:]...)
			asset.UpdatedAt = time.Now()

			st.appendLog(assetID, beneficiaryID, models.ChangeActionRemove, recordToMap(removed))
			s.persist(ctx, userID, st)

			log.Printf("[LedgerService] Выгодоприобретатель %s удален из актива %s", beneficiaryID, assetID)
			return nil
		}
	}

	// Цели нет, но факт попытки удаления все равно фиксируем в журнале
	st.appendLog(assetID, beneficiaryID, models.ChangeActionRemove, map[string]any{})
	s.persist(ctx, userID, st)

	log.Printf("[LedgerService] Удаление несуществующего выгодоприобретателя %s актива %s", beneficiaryID, assetID)
	return ErrBeneficiaryNotFound
}

// ValidateBeneficiaryPercentages считает суммы долей отдельно по основным
// и резервным выгодоприобретателям. Распределение валидно, когда сумма
// основных равна ровно 100 и (резервных нет или их сумма тоже ровно 100).
// Актив без выгодоприобретателей какого-то уровня по этому уровню не
// проверяется. Сравнение строгое, без допуска: три доли по 33.33 дают
// 99.99 и не проходят - доли вводятся целыми числами в сумме 100.
func (s *ledgerService) ValidateBeneficiaryPercentages(
	ctx context.Context,
	userID int64,
	assetID string,
) (*models.AllocationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	asset := st.findAsset(assetID)
	if asset == nil {
		return nil, ErrAssetNotFound
	}

	var primarySum, contingentSum float64
	var primaryCount, contingentCount int
	for i := range asset.Beneficiaries {
		switch asset.Beneficiaries[i].Type {
		case models.BeneficiaryTypePrimary:
			primarySum += asset.Beneficiaries[i].Percentage
			primaryCount++
		case models.BeneficiaryTypeContingent:
			contingentSum += asset.Beneficiaries[i].Percentage
			contingentCount++
		}
	}

	valid := true
	if primaryCount > 0 && primarySum != 100 {
		valid = false
	}
	if contingentCount > 0 && contingentSum != 100 {
		valid = false
	}

	return &models.AllocationStatus{
		AssetID:       assetID,
		Valid:         valid,
		PrimarySum:    primarySum,
		ContingentSum: contingentSum,
	}, nil
}

// GetChangeHistory возвращает снимок журнала изменений от новых записей
// к старым. Записи добавляются строго в хронологическом порядке, поэтому
// обратный обход дает невозрастающий порядок временных меток без сортировки.
func (s *ledgerService) GetChangeHistory(
	ctx context.Context,
	userID int64,
	assetID, beneficiaryID string,
) ([]models.ChangeLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := []models.ChangeLogEntry{}
	for i := len(st.changeLog) - 1; i >= 0; i-- {
		entry := st.changeLog[i]
		if assetID != "" && entry.AssetID != assetID {
			continue
		}
		if beneficiaryID != "" && entry.BeneficiaryID != beneficiaryID {
			continue
		}
		// Копируем и map изменений: журнал только для чтения, мутации
		// возвращенного снимка не должны задевать внутреннее состояние
		changes := make(map[string]any, len(entry.Changes))
		for k, v := range entry.Changes {
			changes[k] = v
		}
		entry.Changes = changes
		entries = append(entries, entry)
	}
	return entries, nil
}

// copyAsset возвращает копию актива с собственным срезом выгодоприобретателей,
// чтобы вызывающий не мог менять состояние сервиса напрямую.
func copyAsset(asset *models.Asset) *models.Asset {
	cp := *asset
	cp.Beneficiaries = make([]models.Beneficiary, len(asset.Beneficiaries))
	copy(cp.Beneficiaries, asset.Beneficiaries)
	return &cp
}

// recordToMap переводит запись в map для снимка в журнале изменений.
func recordToMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Кастомные ошибки сервиса реестра.
var (
	ErrAssetNotFound       = errors.New("актив не найден")
	ErrBeneficiaryNotFound = errors.New("выгодоприобретатель не найден")
)
