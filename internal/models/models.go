package models

// User is the single persisted entity. PasswordHash is excluded from every
// JSON rendering, so marshalling a User always yields the public-safe
// projection.
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username     string `gorm:"uniqueIndex;not null"      json:"username"`
	Email        string `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string `gorm:"not null"                  json:"-"`
	FullName     string `gorm:"not null"                  json:"full_name"`
	PhoneNumber  string `json:"phone_number"`
	Role         string `gorm:"not null;default:'user'"   json:"role"`
	IsActive     bool   `gorm:"not null;default:true"     json:"is_active"`
}
