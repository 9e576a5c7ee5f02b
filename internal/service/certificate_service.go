package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CertificateStore 证书对象存储接口
type CertificateStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// MinioCertificateStore MinIO 实现
type MinioCertificateStore struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioCertificateStore(cfg *config.StorageConfig) (*MinioCertificateStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioCertificateStore{Config: cfg, Client: client}, nil
}

func (s *MinioCertificateStore) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.Client.PutObject(ctx, s.Config.MinioBucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// CertificateService 结业证书。
// 仅作为测验引擎的旁路协作方：再生失败只记日志，绝不影响主流程。
type CertificateService struct {
	CertRepo   *repository.CertificateRepository
	UserRepo   *repository.UserRepository
	CourseRepo *repository.CourseRepository
	Store      CertificateStore
}

func NewCertificateService(
	certRepo *repository.CertificateRepository,
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	store CertificateStore,
) *CertificateService {
	return &CertificateService{
		CertRepo:   certRepo,
		UserRepo:   userRepo,
		CourseRepo: courseRepo,
		Store:      store,
	}
}

// Issue 课程进度达 100% 时签发证书，幂等
func (s *CertificateService) Issue(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	cert, err := s.CertRepo.FindByUserAndCourse(userID, courseID)
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	cert = &model.Certificate{
		UserID:       userID,
		CourseID:     courseID,
		SerialNumber: fmt.Sprintf("CERT-%d-%d-%d", courseID, userID, now.Unix()),
		ObjectKey:    fmt.Sprintf("certificates/%d/%d.html", courseID, userID),
		IssuedAt:     now,
	}
	if err := s.render(ctx, cert); err != nil {
		// 对象存储不可用时仍保留证书记录，下次再生补传
		logger.Log.Warn("certificate upload failed",
			zap.String("serial", cert.SerialNumber), zap.Error(err))
	}
	if err := s.CertRepo.Save(cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// RegenerateIfExists 证书存在时重渲染并覆盖对象，不存在则什么都不做。
// 由测验引擎在通过提交后以尽力而为方式调用。
func (s *CertificateService) RegenerateIfExists(ctx context.Context, userID, courseID uint) {
	cert, err := s.CertRepo.FindByUserAndCourse(userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		logger.Log.Warn("certificate lookup failed",
			zap.Uint("userId", userID), zap.Uint("courseId", courseID), zap.Error(err))
		return
	}

	if err := s.render(ctx, cert); err != nil {
		logger.Log.Warn("certificate regeneration failed",
			zap.String("serial", cert.SerialNumber), zap.Error(err))
		return
	}

	now := time.Now()
	cert.RegeneratedAt = &now
	if err := s.CertRepo.Save(cert); err != nil {
		logger.Log.Warn("certificate record update failed",
			zap.String("serial", cert.SerialNumber), zap.Error(err))
	}
}

func (s *CertificateService) render(ctx context.Context, cert *model.Certificate) error {
	if s.Store == nil {
		return errors.New("certificate store not configured")
	}

	user, err := s.UserRepo.FindByID(cert.UserID)
	if err != nil {
		return err
	}
	course, err := s.CourseRepo.FindCourseByID(cert.CourseID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(certificateTemplate,
		cert.SerialNumber, user.Name, course.Title, cert.IssuedAt.Format("2006-01-02"))
	reader := strings.NewReader(body)
	return s.Store.Upload(ctx, cert.ObjectKey, reader, int64(len(body)), "text/html; charset=utf-8")
}

const certificateTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head><meta charset="utf-8"><title>结业证书</title></head>
<body>
<div class="certificate">
  <p class="serial">%s</p>
  <h1>结业证书</h1>
  <p>兹证明 <strong>%s</strong> 已完成课程 <strong>%s</strong> 的全部学习内容并通过各单元测验。</p>
  <p class="date">%s</p>
</div>
</body>
</html>
`
