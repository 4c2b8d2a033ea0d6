package models

import "time"

// ChangeAction определяет вид мутации выгодоприобретателя.
type ChangeAction string

const (
	ChangeActionAdd    ChangeAction = "add"
	ChangeActionUpdate ChangeAction = "update"
	ChangeActionRemove ChangeAction = "remove"
)

// ChangeLogEntry представляет неизменяемую запись аудита одной мутации
// выгодоприобретателя. Записи только добавляются и никогда не редактируются.
// Для действия add в Changes попадает полная запись, для update - только
// измененные поля, для remove - снимок удаляемой записи (или пустой объект,
// если запись уже отсутствовала).
type ChangeLogEntry struct {
	ID            string         `json:"id"`
	AssetID       string         `json:"asset_id"`
	BeneficiaryID string         `json:"beneficiary_id"`
	Action        ChangeAction   `json:"action"`
	Changes       map[string]any `json:"changes"`
	Timestamp     time.Time      `json:"timestamp"`
}
