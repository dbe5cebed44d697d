package models

import "time"

// Settings is embedded 1:1 in User. Defaults are applied when the user
// record is created, not by the persistence layer.
type Settings struct {
	Currency          string `bson:"currency" json:"currency"`
	Notifications     string `bson:"notifications" json:"notifications"`
	WhatsappNumber    string `bson:"whatsappNumber" json:"whatsappNumber"`
	WhatsappConnected bool   `bson:"whatsappConnected" json:"whatsappConnected"`
}

// DefaultSettings returns the settings assigned to every new user.
func DefaultSettings() Settings {
	return Settings{Currency: "USD", Notifications: "enabled"}
}

// User represents an application user. PasswordHash is empty for accounts
// created through Google sign-in; GoogleID is empty for password accounts.
// A user missing both cannot authenticate and is never created.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password,omitempty" json:"-"`
	GoogleID     string    `bson:"googleId,omitempty" json:"googleId,omitempty"`
	ProfilePic   string    `bson:"profilePic,omitempty" json:"profilePic,omitempty"`
	Settings     Settings  `bson:"settings" json:"settings"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
