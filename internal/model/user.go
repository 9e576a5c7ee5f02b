package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	HOD     UserRole = "hod"
	Dean    UserRole = "dean"
	Admin   UserRole = "admin"
)

// TierRank 解锁授权层级的排序，数值越大权限越高
func TierRank(r UserRole) int {
	switch r {
	case Teacher:
		return 1
	case HOD:
		return 2
	case Dean:
		return 3
	case Admin:
		return 4
	default:
		return 0
	}
}

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `gorm:"autoCreateTime" json:"lastLogin"`
	LastSeen  time.Time `gorm:"autoCreateTime" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// Section 教学班级，学生通过班级绑定获取测验配置
type Section struct {
	BaseModel
	Name string `gorm:"size:100;not null" json:"name"`
}

func (Section) TableName() string {
	return "sections"
}

type UserSection struct {
	BaseModel
	UserID    uint `gorm:"index:idx_user_section,unique" json:"userId"`
	SectionID uint `gorm:"index:idx_user_section,unique" json:"sectionId"`
}

func (UserSection) TableName() string {
	return "user_sections"
}
