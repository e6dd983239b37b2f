package models

import "time"

// UserPreference represents the user_preferences table (or collection).
type UserPreference struct {
	UserID    string    `json:"userId" gorm:"primaryKey;type:varchar(128)" bson:"user_id"`
	Layout    string    `json:"layout" bson:"layout"`
	CardOrder string    `json:"cardOrder" bson:"card_order"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
