package model

import "time"

// Product is a marketplace listing. Listing CRUD lives in another
// service; the chat engine only resolves existence and display fields.
type Product struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:120;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	PriceUSD    uint      `gorm:"column:price_usd;not null" json:"priceUsd"` // cents
	SellerUID   string    `gorm:"column:seller_uid;size:128;index" json:"sellerUid"`
	ImageURL    *string   `gorm:"size:512" json:"imageUrl,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}
