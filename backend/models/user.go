package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Прогрессия: level всегда пересчитывается из xp, отдельно не мутируется
	XP             int                         `gorm:"default:0" json:"xp"`
	Level          int                         `gorm:"default:1" json:"level"`
	Streak         int                         `gorm:"default:0" json:"streak"`
	LastActiveDate *time.Time                  `gorm:"type:date" json:"last_active_date"`
	Badges         datatypes.JSONSlice[string] `gorm:"type:json" json:"badges"`
}

// HasBadge проверяет, есть ли у пользователя бейдж
func (u *User) HasBadge(id string) bool {
	for _, b := range u.Badges {
		if b == id {
			return true
		}
	}
	return false
}
