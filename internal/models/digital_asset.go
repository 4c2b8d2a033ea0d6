package models

import "time"

// DigitalAssetCategory определяет категорию записи цифрового сейфа.
// Категории фиксированы, у каждой свой набор опциональных полей.
type DigitalAssetCategory string

const (
	DigitalAssetPasswords    DigitalAssetCategory = "passwords"
	DigitalAssetBankAccounts DigitalAssetCategory = "bank-accounts"
	DigitalAssetCrypto       DigitalAssetCategory = "crypto"
	DigitalAssetNotes        DigitalAssetCategory = "notes"
)

// Valid проверяет, что категория одна из четырех допустимых.
func (c DigitalAssetCategory) Valid() bool {
	switch c {
	case DigitalAssetPasswords, DigitalAssetBankAccounts, DigitalAssetCrypto, DigitalAssetNotes:
		return true
	}
	return false
}

// DigitalAsset представляет запись цифрового сейфа: учетные данные,
// банковские реквизиты, криптокошелек или заметку. Записи не версионируются
// и не попадают в журнал изменений.
type DigitalAsset struct {
	ID       string               `json:"id"`
	Category DigitalAssetCategory `json:"category"`
	Title    string               `json:"title"`

	// Поля категории passwords.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	URL      string `json:"url,omitempty"`

	// Поля категории bank-accounts.
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`

	// Поля категории crypto.
	Network       string `json:"network,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`

	// Поле категории notes.
	Note string `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DigitalAssetRequest представляет тело запроса на создание или обновление
// записи сейфа. При обновлении категория не меняется.
type DigitalAssetRequest struct {
	Category DigitalAssetCategory `json:"category"`
	Title    string               `json:"title"`

	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`

	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`

	Network       string `json:"network"`
	WalletAddress string `json:"wallet_address"`

	Note string `json:"note"`
}

// VaultCodeRequest представляет тело запроса на установку или проверку
// кода доступа к сейфу.
type VaultCodeRequest struct {
	Code string `json:"code"`
}

// VaultStatus представляет текущее состояние шлюза сейфа.
// Configured=false означает, что код еще не установлен (первый вход).
type VaultStatus struct {
	Configured bool `json:"configured"`
	Locked     bool `json:"locked"`
}

// UnlockResponse представляет результат попытки разблокировки.
type UnlockResponse struct {
	Unlocked bool `json:"unlocked"`
}
