package repository

import (
	"course_delivery_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// CourseRepository 内容目录：课程、单元及其视频/文档
type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) CreateCourse(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindCourseByID(id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) Launch(courseID uint) error {
	now := time.Now()
	return r.DB.Model(&model.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]interface{}{"is_launched": true, "launched_at": now}).
		Error
}

func (r *CourseRepository) CreateUnit(unit *model.Unit) error {
	return r.DB.Create(unit).Error
}

func (r *CourseRepository) FindUnitByID(id uint) (*model.Unit, error) {
	var unit model.Unit
	if err := r.DB.First(&unit, id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *CourseRepository) ListUnits(courseID uint) ([]model.Unit, error) {
	var units []model.Unit
	err := r.DB.Where("course_id = ?", courseID).
		Order("`order` ASC, id ASC").
		Find(&units).Error
	return units, err
}

func (r *CourseRepository) CreateVideo(video *model.Video) error {
	return r.DB.Create(video).Error
}

func (r *CourseRepository) FindVideoByID(id uint) (*model.Video, error) {
	var video model.Video
	if err := r.DB.First(&video, id).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *CourseRepository) ListVideos(unitID uint) ([]model.Video, error) {
	var videos []model.Video
	err := r.DB.Where("unit_id = ?", unitID).
		Order("`order` ASC, id ASC").
		Find(&videos).Error
	return videos, err
}

func (r *CourseRepository) CreateDocument(doc *model.Document) error {
	return r.DB.Create(doc).Error
}

func (r *CourseRepository) FindDocumentByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.DB.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *CourseRepository) ListDocuments(unitID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.DB.Where("unit_id = ?", unitID).
		Order("`order` ASC, id ASC").
		Find(&docs).Error
	return docs, err
}
