package dbschema

import "time"

// BaseModel carries the columns shared by every table.
type BaseModel struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
