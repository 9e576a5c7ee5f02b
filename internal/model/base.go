package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func GenerateUUID() string {
	return uuid.New().String()
}

type ContentItemType string

const (
	ItemTypeVideo    ContentItemType = "video"
	ItemTypeDocument ContentItemType = "document"
	// 测验不会出现在编排快照里，仅用于解锁计算的事件标识
	ItemTypeQuiz ContentItemType = "quiz"
)

// ContentKey 内容项的唯一键，形如 "video:12"，用于待补学列表等 JSON 集合
func ContentKey(t ContentItemType, id uint) string {
	return fmt.Sprintf("%s:%d", t, id)
}
