package models

// LedgerSnapshot представляет сериализованное состояние реестра
// выгодоприобретателей одного пользователя. Снимок зеркалируется в хранилище
// после каждой мутации и восстанавливается как есть при следующей загрузке.
type LedgerSnapshot struct {
	Assets    []Asset          `json:"assets"`
	ChangeLog []ChangeLogEntry `json:"change_log"`
}

// VaultSnapshot представляет сериализованное состояние цифрового сейфа.
// Инвариант "сейф всегда заперт после перезагрузки" обеспечивается
// структурно: IsVaultLocked всегда записывается как true независимо от
// состояния в памяти на момент сохранения.
type VaultSnapshot struct {
	Assets []DigitalAsset `json:"assets"`
	// Bcrypt-хеш кода доступа; nil, пока код не установлен.
	VaultCode     *string `json:"vault_code"`
	IsVaultLocked bool    `json:"is_vault_locked"`
}
