package models

import "time"

// BeneficiaryType определяет уровень выгодоприобретателя.
// Основные (primary) и резервные (contingent) уровни независимы:
// для каждого действует собственное требование суммы долей в 100%.
type BeneficiaryType string

const (
	BeneficiaryTypePrimary    BeneficiaryType = "primary"
	BeneficiaryTypeContingent BeneficiaryType = "contingent"
)

// Valid проверяет, что тип выгодоприобретателя один из допустимых.
func (t BeneficiaryType) Valid() bool {
	return t == BeneficiaryTypePrimary || t == BeneficiaryTypeContingent
}

// Asset представляет финансовый актив пользователя (пенсионный счет,
// страховой полис и т.п.), для которого назначаются выгодоприобретатели.
// Значение Value хранится как свободный текст и не валидируется.
type Asset struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	Value         string        `json:"value"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Beneficiary представляет лицо, назначенное на долю актива.
type Beneficiary struct {
	ID           string          `json:"id"`
	Type         BeneficiaryType `json:"type"`
	FullName     string          `json:"full_name"`
	Relationship string          `json:"relationship"`
	DateOfBirth  string          `json:"date_of_birth"`
	// Номер государственного удостоверения (SSN/TFN) - чувствительные данные.
	GovernmentID string    `json:"government_id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Percentage   float64   `json:"percentage"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateAssetRequest представляет тело запроса на создание актива.
type CreateAssetRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// UpdateAssetRequest представляет тело запроса на частичное обновление актива.
// Указатели позволяют отличить "поле не передано" от пустого значения.
type UpdateAssetRequest struct {
	Name  *string `json:"name,omitempty"`
	Type  *string `json:"type,omitempty"`
	Value *string `json:"value,omitempty"`
}

// CreateBeneficiaryRequest представляет тело запроса на добавление выгодоприобретателя.
type CreateBeneficiaryRequest struct {
	Type         BeneficiaryType `json:"type"`
	FullName     string          `json:"full_name"`
	Relationship string          `json:"relationship"`
	DateOfBirth  string          `json:"date_of_birth"`
	GovernmentID string          `json:"government_id"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	Percentage   float64         `json:"percentage"`
}

// UpdateBeneficiaryRequest представляет тело запроса на частичное обновление
// выгодоприобретателя. В журнал изменений попадают только переданные поля.
type UpdateBeneficiaryRequest struct {
	Type         *BeneficiaryType `json:"type,omitempty"`
	FullName     *string          `json:"full_name,omitempty"`
	Relationship *string          `json:"relationship,omitempty"`
	DateOfBirth  *string          `json:"date_of_birth,omitempty"`
	GovernmentID *string          `json:"government_id,omitempty"`
	Email        *string          `json:"email,omitempty"`
	Phone        *string          `json:"phone,omitempty"`
	Address      *string          `json:"address,omitempty"`
	Percentage   *float64         `json:"percentage,omitempty"`
}

// AllocationStatus представляет результат проверки распределения долей по активу.
// Проверка мягкая: невалидное распределение не блокирует мутации,
// UI показывает предупреждение.
type AllocationStatus struct {
	AssetID       string  `json:"asset_id"`
	Valid         bool    `json:"valid"`
	PrimarySum    float64 `json:"primary_sum"`
	ContingentSum float64 `json:"contingent_sum"`
}
