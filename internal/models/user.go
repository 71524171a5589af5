package models

import "time"

type User struct {
	BaseModel
	Email        string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string  `json:"-" gorm:"type:text;not null"`
	Name         *string `json:"name" gorm:"type:varchar(255)"`
	Demos        []Demo  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// PublicUser is the subset of a user returned by the auth endpoints.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
