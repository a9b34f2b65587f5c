package model

import "time"

type CommonModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id,string"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
