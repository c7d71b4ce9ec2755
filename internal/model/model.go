// Package model содержит доменные сущности сервиса ателье.
package model

import "time"

// Role описывает роль учётной записи.
type Role string

const (
	RoleClient  Role = "client"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// IsValidRole проверяет, что роль входит в закрытый перечень.
func IsValidRole(r Role) bool {
	switch r {
	case RoleClient, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// Account представляет учётную запись оптика или администратора.
type Account struct {
	ID           int64
	Email        string
	PasswordHash []byte
	CompanyName  string
	SIRET        string
	Phone        string
	Address      string
	ZipCity      string
	Role         Role
	Verified     bool
	// Shops хранит идентификаторы магазинов, закреплённых за менеджером.
	Shops     []int64
	CreatedAt time.Time
}

// AccountView — проекция учётной записи без хеша пароля, отдаваемая клиенту.
type AccountView struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	CompanyName string   `json:"nomSociete"`
	SIRET       string   `json:"siret"`
	Phone       string   `json:"phone,omitempty"`
	Address     string   `json:"address,omitempty"`
	ZipCity     string   `json:"zipCity,omitempty"`
	Role        Role     `json:"role"`
	Verified    bool     `json:"isVerified"`
	Shops       []string `json:"magasins,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

// View возвращает проекцию учётной записи. Названия магазинов передаются отдельно,
// поскольку их разрешение требует обращения к хранилищу.
func (a *Account) View(shopNames []string) AccountView {
	return AccountView{
		ID:          a.ID,
		Email:       a.Email,
		CompanyName: a.CompanyName,
		SIRET:       a.SIRET,
		Phone:       a.Phone,
		Address:     a.Address,
		ZipCity:     a.ZipCity,
		Role:        a.Role,
		Verified:    a.Verified,
		Shops:       shopNames,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

// OrderStatus описывает статус монтажа в производственном цикле.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "En attente"
	OrderStatusReceived   OrderStatus = "Reçu"
	OrderStatusInProgress OrderStatus = "En cours"
	OrderStatusCompleted  OrderStatus = "Terminé"
	OrderStatusShipped    OrderStatus = "Expédié"
)

// statusRank задаёт линейный порядок статусов: переходы допускаются только вперёд.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusReceived:   1,
	OrderStatusInProgress: 2,
	OrderStatusCompleted:  3,
	OrderStatusShipped:    4,
}

// IsValidOrderStatus проверяет, что статус входит в закрытый перечень.
func IsValidOrderStatus(s OrderStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition сообщает, допустим ли переход из статуса from в статус to
// без явного принудительного флага. Повторная запись того же статуса допустима.
func CanTransition(from, to OrderStatus) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank >= fromRank
}

// CreatedBy фиксирует, кто оформил монтаж: сам клиент или администратор от его имени.
type CreatedBy string

const (
	CreatedByClient CreatedBy = "client"
	CreatedByAdmin  CreatedBy = "admin"
)

// Значения по умолчанию для необязательных полей монтажа.
const (
	DefaultCategory = "Cerclé"
	DefaultUrgency  = "Standard"
)

// Order описывает заказ на монтаж очковых линз.
type Order struct {
	ID int64
	// OwnerID — обязательная ссылка на учётную запись владельца.
	OwnerID int64
	// OwnerName — денормализованная копия названия компании владельца
	// на момент создания или последнего явного обновления.
	OwnerName      string
	Description    string
	Frame          string
	Reference      string
	Category       string
	GlassTypes     []string
	Urgency        string
	DiamondCutType string
	EngravingCount int
	ShapeChange    bool
	PhotoRef       string
	CreatedBy      CreatedBy
	Status         OrderStatus
	CreatedAt      time.Time
}

// Invoice описывает фактуру, выставленную администрацией ателье.
// Денежные суммы хранятся в сантимах.
type Invoice struct {
	ID            int64
	OwnerID       int64
	Number        string
	TotalHTCents  int64
	TotalTTCCents int64
	PaidCents     int64
	PaymentStatus string
	OrderRefs     []string
	// Items хранит непрозрачный JSON-список позиций фактуры.
	Items       []byte
	DocumentURL string
	CreatedAt   time.Time
}
