package service

import (
	"time"

	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/pkg/logger"
	"course_delivery_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RevalidationService 内容完整性重校验。
// 已上线课程的单元补充新内容时，把所有已完成该单元的学生回退到
// needs_review 并记下待学增量；needs_review 阻断向后续单元的解锁
// 传播，直到新内容全部消化。保证后补内容绝不被悄悄跳过。
type RevalidationService struct {
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	DB           *gorm.DB
}

func NewRevalidationService(progressRepo *repository.ProgressRepository, courseRepo *repository.CourseRepository, db *gorm.DB) *RevalidationService {
	return &RevalidationService{ProgressRepo: progressRepo, CourseRepo: courseRepo, DB: db}
}

// HandleContentAdded 单元新增内容后的回退。
// 未上线课程不回退（学生还看不到内容）。返回受影响的学生数。
func (s *RevalidationService) HandleContentAdded(unitID uint, item ContentItem) (int, error) {
	unit, err := s.CourseRepo.FindUnitByID(unitID)
	if err != nil {
		return 0, err
	}
	course, err := s.CourseRepo.FindCourseByID(unit.CourseID)
	if err != nil {
		return 0, err
	}
	if !course.IsLaunched {
		return 0, nil
	}

	completed, err := s.ProgressRepo.FindCompletedForUnit(unitID)
	if err != nil {
		return 0, err
	}

	key := item.Key()
	affected := 0
	for i := range completed {
		up := &completed[i]
		up.Status = model.UnitNeedsReview
		if !containsKey(up.PendingContentKeys, key) {
			up.PendingContentKeys = append(up.PendingContentKeys, key)
		}
		if err := s.ProgressRepo.SaveUnitProgress(up); err != nil {
			logger.Log.Error("revalidation mark failed",
				zap.Uint("userId", up.UserID), zap.Uint("unitId", unitID), zap.Error(err))
			continue
		}
		affected++
	}

	if affected > 0 {
		monitoring.UnitsRevalidated.Add(float64(affected))
		logger.Log.Info("unit revalidation triggered",
			zap.Uint("unitId", unitID), zap.String("contentKey", key), zap.Int("affected", affected))
	}
	return affected, nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// Sweep 后台巡检：待学列表已清空却仍停在 needs_review 的单元
// （例如新增内容随后又被移出编排）恢复为 completed。
func (s *RevalidationService) Sweep(batch int) error {
	ups, err := s.ProgressRepo.FindNeedsReview(batch)
	if err != nil {
		return err
	}
	for i := range ups {
		up := &ups[i]
		if len(up.PendingContentKeys) > 0 {
			if stale, err := s.pendingStillInCatalog(up); err == nil && !stale {
				up.PendingContentKeys = nil
			} else {
				continue
			}
		}
		up.Status = model.UnitCompleted
		if err := s.ProgressRepo.SaveUnitProgress(up); err != nil {
			logger.Log.Error("revalidation sweep save failed",
				zap.Uint("userId", up.UserID), zap.Uint("unitId", up.UnitID), zap.Error(err))
		}
	}
	return nil
}

// pendingStillInCatalog 待学项是否仍然存在于目录中
func (s *RevalidationService) pendingStillInCatalog(up *model.UnitProgress) (bool, error) {
	videos, err := s.CourseRepo.ListVideos(up.UnitID)
	if err != nil {
		return true, err
	}
	docs, err := s.CourseRepo.ListDocuments(up.UnitID)
	if err != nil {
		return true, err
	}
	live := make(map[string]bool, len(videos)+len(docs))
	for _, v := range videos {
		live[model.ContentKey(model.ItemTypeVideo, v.ID)] = true
	}
	for _, d := range docs {
		live[model.ContentKey(model.ItemTypeDocument, d.ID)] = true
	}
	for _, k := range up.PendingContentKeys {
		if live[k] {
			return true, nil
		}
	}
	return false, nil
}

// RunSweeper 周期巡检循环，随进程生命周期运行
func (s *RevalidationService) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Sweep(200); err != nil {
				logger.Log.Error("revalidation sweep failed", zap.Error(err))
			}
		case <-stop:
			return
		}
	}
}
