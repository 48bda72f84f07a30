package models

import "time"

// User is an API account allowed to trigger ingestion and clear the cache.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(80);not null" validate:"required,min=3,max=80"`
	Password  string    `json:"password,omitempty" gorm:"type:varchar(255);not null" validate:"required,min=6"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
