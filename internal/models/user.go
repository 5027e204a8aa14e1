package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Location struct {
	Type        string    `bson:"type" json:"type" validate:"required"` // "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"required,len=2"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email        string             `bson:"email" json:"email" validate:"required,email"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	// Личная информация
	FirstName string `bson:"first_name" json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `bson:"last_name" json:"last_name" validate:"required,min=2,max=50"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty" validate:"omitempty,min=10,max=15"`

	// Роль и специализация (специализация имеет смысл только для роли authority
	// и должна совпадать с одной из категорий заявок)
	Role      string `bson:"role" json:"role"`
	Specialty string `bson:"specialty,omitempty" json:"specialty,omitempty"`

	// Push-токен устройства (Expo). Пустое значение — push не доставляется,
	// но записи уведомлений в приложении всё равно создаются.
	PushToken string `bson:"push_token,omitempty" json:"push_token,omitempty"`

	// Блокировка
	IsBlocked   bool       `bson:"is_blocked" json:"is_blocked"`
	BlockReason string     `bson:"block_reason,omitempty" json:"block_reason,omitempty"`
	BlockedAt   *time.Time `bson:"blocked_at,omitempty" json:"blocked_at,omitempty"`

	// Временные метки
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// IsAuthorityFor проверяет, что пользователь — профильный орган для категории
func (u *User) IsAuthorityFor(category string) bool {
	return UserRole(u.Role) == RoleAuthority && u.Specialty == category
}

// FullName возвращает полное имя пользователя
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
