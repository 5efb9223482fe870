package registry

import (
	"time"

	"gorm.io/datatypes"
)

// EntityRecord is one tracked entity. The (wallet, kind, natural_id) triple
// is the persisted identity; it survives restarts so an entity created in a
// previous run updates in place instead of duplicating.
type EntityRecord struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	Wallet     string         `gorm:"column:wallet;uniqueIndex:idx_entity_identity,priority:1"`
	Kind       string         `gorm:"column:kind;uniqueIndex:idx_entity_identity,priority:2"`
	NaturalID  string         `gorm:"column:natural_id;uniqueIndex:idx_entity_identity,priority:3"`
	UniqueID   string         `gorm:"column:unique_id"`
	Name       string         `gorm:"column:name"`
	State      string         `gorm:"column:state"`
	Attributes datatypes.JSON `gorm:"column:attributes;type:TEXT"`
	Available  bool           `gorm:"column:available"`
	FirstSeen  int64          `gorm:"column:first_seen"`
	LastSeen   int64          `gorm:"column:last_seen"`

	CreatedAt time.Time `gorm:"-"`
	UpdatedAt time.Time `gorm:"-"`
}

func (EntityRecord) TableName() string { return "entities" }
