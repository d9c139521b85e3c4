package models

import "gorm.io/gorm"

type Task struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null" json:"user_id"`
	RoadmapID   *uint  `gorm:"index" json:"roadmap_id"` // слабая ссылка, задача может жить без роадмапа
	Text        string `gorm:"not null" json:"text"`
	IsCompleted bool   `gorm:"default:false" json:"is_completed"`
}
