package domain

import "time"

// Item listing statuses.
const (
	ItemStatusAvailable = "available"
	ItemStatusSold      = "sold"
	ItemStatusRemoved   = "removed"
)

// Listing types.
const (
	ListingTypeSell = "sell"
	ListingTypeRent = "rent"
)

type Item struct {
	ItemID      string      `json:"id" dynamodbav:"item_id"`
	UserID      string      `json:"user_id" dynamodbav:"user_id"`
	Title       string      `json:"title" dynamodbav:"title"`
	Description string      `json:"description" dynamodbav:"description"`
	Price       int64       `json:"price" dynamodbav:"price"`
	CategoryID  string      `json:"category" dynamodbav:"category_id"`
	ListingType string      `json:"listing_type" dynamodbav:"listing_type"`
	Location    string      `json:"location" dynamodbav:"location"`
	Status      string      `json:"status" dynamodbav:"status"`
	Images      []ItemImage `json:"images" dynamodbav:"-"`
	CreatedAt   time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time   `json:"updated" dynamodbav:"updated_at"`
}

type CreateItemRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
	CategoryID  string `json:"category" validate:"required"`
	ListingType string `json:"listing_type" validate:"required,oneof=sell rent"`
	Location    string `json:"location" validate:"required"`
}

type UpdateItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	CategoryID  *string `json:"category"`
	ListingType *string `json:"listing_type" validate:"omitempty,oneof=sell rent"`
	Location    *string `json:"location"`
	Status      *string `json:"status" validate:"omitempty,oneof=available sold removed"`
}

// ItemFilter narrows the public listing feed. Zero values mean "no constraint".
type ItemFilter struct {
	Search      string // matched against title and location
	CategoryID  string
	ListingType string
	Price       *int64 // exact
	PriceGTE    *int64
	PriceLTE    *int64
}
