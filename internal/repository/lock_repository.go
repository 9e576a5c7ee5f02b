package repository

import (
	"course_delivery_backend/internal/model"
	"errors"

	"gorm.io/gorm"
)

type LockRepository struct {
	DB *gorm.DB
}

func NewLockRepository(db *gorm.DB) *LockRepository {
	return &LockRepository{DB: db}
}

func (r *LockRepository) Find(userID, poolID uint) (*model.QuizLock, error) {
	var lock model.QuizLock
	err := r.DB.Where("user_id = ? AND pool_id = ?", userID, poolID).First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// FindOrCreate 不存在时初始化一条未锁定记录
func (r *LockRepository) FindOrCreate(userID, poolID uint) (*model.QuizLock, error) {
	lock, err := r.Find(userID, poolID)
	if err == nil {
		return lock, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	lock = &model.QuizLock{
		UserID:                   userID,
		PoolID:                   poolID,
		UnlockAuthorizationLevel: model.Teacher,
	}
	if err := r.DB.Create(lock).Error; err != nil {
		return nil, err
	}
	return lock, nil
}

func (r *LockRepository) Save(lock *model.QuizLock) error {
	return r.DB.Save(lock).Error
}
