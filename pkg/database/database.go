package database

import (
	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}

// Migrate 建表/迁移，测试里也用它初始化内存库
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Section{},
		&model.UserSection{},
		&model.Course{},
		&model.Unit{},
		&model.Video{},
		&model.Document{},
		&model.QuizPool{},
		&model.QuizQuestion{},
		&model.SectionQuizConfig{},
		&model.ContentArrangement{},
		&model.ArrangementItem{},
		&model.CourseProgress{},
		&model.UnitProgress{},
		&model.VideoWatch{},
		&model.QuizAttempt{},
		&model.AttemptAnswer{},
		&model.SecurityViolation{},
		&model.QuizLock{},
		&model.Certificate{},
	)
}
