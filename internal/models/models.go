package models

import (
	"time"
)

const (
	GroupManager      = "Manager"
	GroupDeliveryCrew = "Delivery Crew"
)

type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string  `gorm:"unique;not null"          json:"username"`
	PasswordHash string  `gorm:"not null"                 json:"-"`
	Groups       []Group `gorm:"many2many:user_groups"    json:"groups,omitempty"`
}

type Group struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Category struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug  string `gorm:"unique;not null"          json:"slug"`
	Title string `gorm:"not null;index"           json:"title"`
}

type MenuItem struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	Title      string    `gorm:"not null"                     json:"title"`
	Price      Money     `gorm:"type:decimal(6,2);not null"   json:"price"`
	Featured   bool      `gorm:"not null;default:false"       json:"featured"`
	CategoryID uint      `gorm:"not null;index"               json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
}

// CartItem is unique per (user, menu item): a repeated add merges into the
// existing line instead of creating a second one.
type CartItem struct {
	ID         uint  `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID     uint  `gorm:"not null;uniqueIndex:idx_cart_user_item"    json:"user_id"`
	MenuItemID uint  `gorm:"not null;uniqueIndex:idx_cart_user_item"    json:"menu_item_id"`
	Quantity   uint  `gorm:"not null;check:quantity>0"                  json:"quantity"`
	UnitPrice  Money `gorm:"type:decimal(6,2);not null"                 json:"unit_price"`
	TotalPrice Money `gorm:"type:decimal(6,2);not null"                 json:"total_price"`
}

// Order status is two-state: false = not delivered, true = delivered.
type Order struct {
	ID             uint        `gorm:"primaryKey;autoIncrement"   json:"id"`
	UserID         uint        `gorm:"index;not null"             json:"user_id"`
	DeliveryCrewID *uint       `gorm:"index"                      json:"delivery_crew_id"`
	Status         bool        `gorm:"not null;default:false"     json:"status"`
	Total          Money       `gorm:"type:decimal(6,2);not null" json:"total"`
	CreatedAt      time.Time   `gorm:"not null"                   json:"date"`
	Items          []OrderItem `gorm:"foreignKey:OrderID"         json:"items,omitempty"`
}

// OrderItem is a frozen snapshot of a cart line taken at checkout. Quantity
// and prices never change afterwards, even if the menu item's price does.
type OrderItem struct {
	ID         uint  `gorm:"primaryKey;autoIncrement"                 json:"id"`
	OrderID    uint  `gorm:"not null;uniqueIndex:idx_order_menu_item" json:"order_id"`
	MenuItemID uint  `gorm:"not null;uniqueIndex:idx_order_menu_item" json:"menu_item_id"`
	Quantity   uint  `gorm:"not null;check:quantity>0"                json:"quantity"`
	UnitPrice  Money `gorm:"type:decimal(6,2);not null"               json:"unit_price"`
	TotalPrice Money `gorm:"type:decimal(6,2);not null"               json:"total_price"`
}
