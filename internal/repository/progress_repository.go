package repository

import (
	"course_delivery_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// FindByUserAndCourse 完整加载进度记录（单元与观看明细）
func (r *ProgressRepository) FindByUserAndCourse(userID, courseID uint) (*model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.DB.Preload("Units").Preload("Units.Watches").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) Create(p *model.CourseProgress) error {
	return r.DB.Create(p).Error
}

func (r *ProgressRepository) Save(p *model.CourseProgress) error {
	return r.DB.Save(p).Error
}

func (r *ProgressRepository) SaveUnitProgress(up *model.UnitProgress) error {
	return r.DB.Save(up).Error
}

func (r *ProgressRepository) SaveWatch(w *model.VideoWatch) error {
	return r.DB.Save(w).Error
}

// FindCompletedForUnit 某单元所有状态为 completed 的单元进度（内容新增重校验用）
func (r *ProgressRepository) FindCompletedForUnit(unitID uint) ([]model.UnitProgress, error) {
	var ups []model.UnitProgress
	err := r.DB.Where("unit_id = ? AND status = ?", unitID, model.UnitCompleted).
		Find(&ups).Error
	return ups, err
}

// FindNeedsReview 后台巡检：仍处于 needs_review 的单元进度
func (r *ProgressRepository) FindNeedsReview(limit int) ([]model.UnitProgress, error) {
	var ups []model.UnitProgress
	err := r.DB.Where("status = ?", model.UnitNeedsReview).
		Limit(limit).
		Find(&ups).Error
	return ups, err
}
