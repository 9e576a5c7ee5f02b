package model

import (
	"time"
)

// Certificate 结课证书记录，测验通过后按需重新生成（尽力而为）
type Certificate struct {
	BaseModel
	UserID        uint       `gorm:"index:idx_cert_user_course,unique" json:"userId"`
	CourseID      uint       `gorm:"index:idx_cert_user_course,unique" json:"courseId"`
	SerialNumber  string     `gorm:"size:64;uniqueIndex" json:"serialNumber"`
	ObjectKey     string     `gorm:"size:255" json:"objectKey"`
	IssuedAt      time.Time  `json:"issuedAt"`
	RegeneratedAt *time.Time `json:"regeneratedAt,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}
