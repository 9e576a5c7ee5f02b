package repository

import (
	"course_delivery_backend/internal/model"

	"gorm.io/gorm"
)

type ArrangementRepository struct {
	DB *gorm.DB
}

func NewArrangementRepository(db *gorm.DB) *ArrangementRepository {
	return &ArrangementRepository{DB: db}
}

func (r *ArrangementRepository) Create(a *model.ContentArrangement) error {
	return r.DB.Create(a).Error
}

func (r *ArrangementRepository) Save(a *model.ContentArrangement) error {
	return r.DB.Save(a).Error
}

func (r *ArrangementRepository) FindByID(id uint) (*model.ContentArrangement, error) {
	var a model.ContentArrangement
	if err := r.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` ASC, id ASC")
	}).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// LatestApproved 课程最新的 approved 版本；没有时返回 gorm.ErrRecordNotFound
func (r *ArrangementRepository) LatestApproved(courseID uint) (*model.ContentArrangement, error) {
	var a model.ContentArrangement
	err := r.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` ASC, id ASC")
	}).
		Where("course_id = ? AND status = ?", courseID, model.ArrangementApproved).
		Order("version DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ArrangementRepository) ListByCourse(courseID uint) ([]model.ContentArrangement, error) {
	var list []model.ContentArrangement
	err := r.DB.Where("course_id = ?", courseID).
		Order("version DESC").
		Find(&list).Error
	return list, err
}

// NextVersion 课程的下一个版本号
func (r *ArrangementRepository) NextVersion(courseID uint) (int, error) {
	var maxVersion int
	err := r.DB.Model(&model.ContentArrangement{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	return maxVersion + 1, err
}
