package domain

import "time"

// Profile is created automatically alongside its User and keyed by the same id.
type Profile struct {
	UserID      string    `json:"id" dynamodbav:"user_id"`
	Bio         string    `json:"bio" dynamodbav:"bio"`
	Location    string    `json:"location" dynamodbav:"location"`
	PhoneNumber string    `json:"phone_number" dynamodbav:"phone_number"`
	ImageURL    string    `json:"image" dynamodbav:"image_url"`
	ImageKey    string    `json:"-" dynamodbav:"image_key"` // object-store key of the avatar, used for deletion
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,alpha"`
	LastName    *string `json:"last_name" validate:"omitempty,alpha"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	PhoneNumber *string `json:"phone_number"`
}
