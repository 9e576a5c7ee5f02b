package repository

import (
	"course_delivery_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// QuizRepository 题库、题目与班级级测验配置
type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) CreatePool(pool *model.QuizPool) error {
	return r.DB.Create(pool).Error
}

func (r *QuizRepository) FindPoolByID(id uint) (*model.QuizPool, error) {
	var pool model.QuizPool
	if err := r.DB.First(&pool, id).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

// FindPoolByUnit 单元的题库，不存在时返回 gorm.ErrRecordNotFound
func (r *QuizRepository) FindPoolByUnit(unitID uint) (*model.QuizPool, error) {
	var pool model.QuizPool
	if err := r.DB.Where("unit_id = ?", unitID).First(&pool).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

func (r *QuizRepository) ListPoolsByUnits(unitIDs []uint) ([]model.QuizPool, error) {
	var pools []model.QuizPool
	if len(unitIDs) == 0 {
		return pools, nil
	}
	err := r.DB.Where("unit_id IN ?", unitIDs).Find(&pools).Error
	return pools, err
}

func (r *QuizRepository) CreateQuestion(q *model.QuizQuestion) error {
	return r.DB.Create(q).Error
}

func (r *QuizRepository) FindQuestionByID(id uint) (*model.QuizQuestion, error) {
	var q model.QuizQuestion
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ListApprovedQuestions 仅返回通过协调人审核的题目，按文档顺序
func (r *QuizRepository) ListApprovedQuestions(poolID uint) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	err := r.DB.Where("pool_id = ? AND approval_status = ?", poolID, model.QuestionApproved).
		Order("`order` ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *QuizRepository) CountApprovedQuestions(poolID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizQuestion{}).
		Where("pool_id = ? AND approval_status = ?", poolID, model.QuestionApproved).
		Count(&count).Error
	return count, err
}

func (r *QuizRepository) SetQuestionApproval(questionID, reviewerID uint, status model.QuestionApprovalStatus) error {
	now := time.Now()
	return r.DB.Model(&model.QuizQuestion{}).
		Where("id = ?", questionID).
		Updates(map[string]interface{}{
			"approval_status": status,
			"reviewer_id":     reviewerID,
			"reviewed_at":     now,
		}).Error
}

// FindSectionConfig 学生所属班级中第一条命中的课程配置
func (r *QuizRepository) FindSectionConfig(sectionIDs []uint, courseID uint) (*model.SectionQuizConfig, error) {
	if len(sectionIDs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var cfg model.SectionQuizConfig
	err := r.DB.Where("section_id IN ? AND course_id = ?", sectionIDs, courseID).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *QuizRepository) SaveSectionConfig(cfg *model.SectionQuizConfig) error {
	return r.DB.Save(cfg).Error
}
