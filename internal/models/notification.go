package models

import "time"

type Notification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
