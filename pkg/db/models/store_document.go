package models

import "time"

// StoreDocument holds one serialized store snapshot. The API only ever uses a
// single row keyed by the configured document id.
type StoreDocument struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Body      string    `gorm:"column:body;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (StoreDocument) TableName() string {
	return "store_documents"
}
