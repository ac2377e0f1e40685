package entities

import (
	"time"
)

type User struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Email        string `gorm:"size:256;uniqueIndex;not null" json:"email"`
	Username     string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName    string `gorm:"size:150;not null" json:"first_name"`
	LastName     string `gorm:"size:150;not null" json:"last_name"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"size:16;default:'user'" json:"role"`

	Recipes []*Recipe `gorm:"foreignKey:AuthorID" json:"recipes,omitempty"`
	Timestamp
}

type Subscription struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subscription_user_author" json:"user_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_subscription_user_author" json:"author_id"`
	CreatedAt time.Time `gorm:"type:timestamp" json:"created_at"`

	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}
