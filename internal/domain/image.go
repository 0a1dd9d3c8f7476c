package domain

import "time"

// MaxImagesPerItem caps how many images a listing may carry; MinImagesPerItem
// is the floor enforced once a listing has been created with at least one.
const (
	MaxImagesPerItem = 3
	MinImagesPerItem = 1
)

// ItemImage is owned exclusively by its Item. The binary payload lives in the
// object store; only the key and public URL are persisted here. Order is the
// zero-based display position, dense within an item after every mutation.
type ItemImage struct {
	ImageID   string    `json:"id" dynamodbav:"image_id"`
	ItemID    string    `json:"item_id" dynamodbav:"item_id"`
	ObjectKey string    `json:"-" dynamodbav:"object_key"`
	ImageURL  string    `json:"image_url" dynamodbav:"image_url"`
	Order     int       `json:"order" dynamodbav:"order"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
