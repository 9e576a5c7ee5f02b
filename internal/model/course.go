package model

import (
	"time"
)

// Course 课程，Launch 之后编排快照开始生效，进度重校验也随之启用
// swagger:model Course
type Course struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	IsLaunched  bool   `gorm:"default:false" json:"isLaunched"`
	LaunchedAt  *time.Time
	// 0 表示使用全局默认次数
	BaseAttemptLimit int    `gorm:"default:0" json:"baseAttemptLimit"`
	PassingPercent   int    `gorm:"default:0" json:"passingPercent"`
	Units            []Unit `gorm:"foreignKey:CourseID" json:"units,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Unit 课程单元，按 Order 排序；每个单元最多一个测验题库
type Unit struct {
	BaseModel
	CourseID uint   `gorm:"index" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Order    int    `gorm:"default:0" json:"order"`
}

func (Unit) TableName() string {
	return "units"
}

type Video struct {
	BaseModel
	UnitID          uint   `gorm:"index" json:"unitId"`
	Title           string `gorm:"size:255;not null" json:"title"`
	Order           int    `gorm:"default:0" json:"order"`
	DurationSeconds int    `gorm:"default:0" json:"durationSeconds"`
	URL             string `gorm:"size:512" json:"url"`
}

func (Video) TableName() string {
	return "videos"
}

type Document struct {
	BaseModel
	UnitID uint   `gorm:"index" json:"unitId"`
	Title  string `gorm:"size:255;not null" json:"title"`
	Order  int    `gorm:"default:0" json:"order"`
	URL    string `gorm:"size:512" json:"url"`
}

func (Document) TableName() string {
	return "documents"
}
