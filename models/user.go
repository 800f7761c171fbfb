package models

import "time"

// User is an account allowed to call the API
type User struct {
	ID             int64     `gorm:"primaryKey;column:id"`
	Username       string    `gorm:"column:username;uniqueIndex;not null"`
	HashedPassword string    `gorm:"column:hashed_password;not null"`
	IsActive       bool      `gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (User) TableName() string {
	return "users"
}
