package model

import (
	"time"
)

type ArrangementStatus string

const (
	ArrangementOpen      ArrangementStatus = "open"
	ArrangementSubmitted ArrangementStatus = "submitted"
	ArrangementApproved  ArrangementStatus = "approved"
	ArrangementRejected  ArrangementStatus = "rejected"
)

// ContentArrangement 课程内容编排的版本快照。
// 课程 Launch 后，最新 approved 版本是解锁/进度计算的唯一权威顺序；
// 历史版本保留用于审计。
// swagger:model ContentArrangement
type ContentArrangement struct {
	BaseModel
	CourseID      uint              `gorm:"index" json:"courseId"`
	Version       int               `gorm:"default:1" json:"version"`
	Status        ArrangementStatus `gorm:"size:20;default:'open'" json:"status"`
	SubmittedByID uint              `json:"submittedById"`
	ReviewedByID  *uint             `json:"reviewedById,omitempty"`
	ReviewedAt    *time.Time        `json:"reviewedAt,omitempty"`
	Note          string            `gorm:"size:512" json:"note"`
	Items         []ArrangementItem `gorm:"foreignKey:ArrangementID" json:"items,omitempty"`
}

func (ContentArrangement) TableName() string {
	return "content_arrangements"
}

type ArrangementItem struct {
	BaseModel
	ArrangementID uint            `gorm:"index" json:"arrangementId"`
	UnitID        uint            `gorm:"index" json:"unitId"`
	ItemType      ContentItemType `gorm:"size:20" json:"itemType"`
	ItemID        uint            `json:"itemId"`
	Order         int             `gorm:"default:0" json:"order"`
}

func (ArrangementItem) TableName() string {
	return "arrangement_items"
}
