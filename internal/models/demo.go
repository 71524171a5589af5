package models

import "github.com/google/uuid"

type Demo struct {
	BaseModel
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Type        string    `json:"type" gorm:"type:varchar(64);not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	Thumbnail   *string   `json:"thumbnail" gorm:"type:text"`
	Views       int       `json:"views" gorm:"not null;default:0"`
	UserID      uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	URL         *string   `json:"url" gorm:"type:text"`
	IsPublic    bool      `json:"isPublic" gorm:"not null;default:false"`
}
