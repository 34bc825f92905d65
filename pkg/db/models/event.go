package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/storefront-wishlist/pkg/db/types"
)

// EventType tags an activity record.
type EventType string

const (
	EventTypeAdd     EventType = "add"
	EventTypeRemove  EventType = "remove"
	EventTypeMigrate EventType = "migrate"
	EventTypeSession EventType = "session"
)

// Event is an append-only activity record. Guests are recorded with a nil CustomerID.
type Event struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID     uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index:events_shop_id_idx"`
	CustomerID *uuid.UUID      `gorm:"column:customer_id;type:uuid"`
	Type       EventType       `gorm:"column:type;not null"`
	Payload    dbtypes.JSONMap `gorm:"column:payload;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Event) TableName() string { return "events" }
