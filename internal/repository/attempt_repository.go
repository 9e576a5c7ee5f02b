package repository

import (
	"course_delivery_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) Save(attempt *model.QuizAttempt) error {
	return r.DB.Save(attempt).Error
}

func (r *AttemptRepository) FindByPublicID(publicID string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Preload("Answers").Preload("Violations").
		Where("public_id = ?", publicID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindIncomplete 学生在该题库上尚未提交的作答
func (r *AttemptRepository) FindIncomplete(userID, poolID uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("user_id = ? AND pool_id = ? AND completed_at IS NULL", userID, poolID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountCompleted 已提交的作答次数；未提交的生成记录不计入
func (r *AttemptRepository) CountCompleted(userID, poolID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND pool_id = ? AND completed_at IS NOT NULL", userID, poolID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) DeleteIncomplete(userID, poolID uint) error {
	return r.DB.Where("user_id = ? AND pool_id = ? AND completed_at IS NULL", userID, poolID).
		Delete(&model.QuizAttempt{}).Error
}

func (r *AttemptRepository) ListByUserAndPool(userID, poolID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND pool_id = ? AND completed_at IS NOT NULL", userID, poolID).
		Order("completed_at ASC").
		Find(&attempts).Error
	return attempts, err
}

// HasPassed 学生是否已通过该题库的测验
func (r *AttemptRepository) HasPassed(userID, poolID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND pool_id = ? AND passed = ?", userID, poolID, true).
		Count(&count).Error
	return count > 0, err
}
