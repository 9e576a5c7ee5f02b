package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ArrangementService 内容编排：版本快照的生命周期管理与有效顺序解析。
// 课程 Launch 后所有解锁/进度计算都消费这里的解析结果，不再直读目录。
type ArrangementService struct {
	ArrangementRepo *repository.ArrangementRepository
	CourseRepo      *repository.CourseRepository
	Redis           *redis.Client
	Cfg             *config.Config
	DB              *gorm.DB
}

func NewArrangementService(
	arrangementRepo *repository.ArrangementRepository,
	courseRepo *repository.CourseRepository,
	rdb *redis.Client,
	cfg *config.Config,
	db *gorm.DB,
) *ArrangementService {
	return &ArrangementService{
		ArrangementRepo: arrangementRepo,
		CourseRepo:      courseRepo,
		Redis:           rdb,
		Cfg:             cfg,
		DB:              db,
	}
}

// ResolvedOrder 解析结果：有效顺序及其来源版本（0 表示原始目录顺序）
type ResolvedOrder struct {
	Version int           `json:"version"`
	Items   []ContentItem `json:"items"`
}

func arrangementCacheKey(courseID uint) string {
	return fmt.Sprintf("arrangement:order:%d", courseID)
}

// ResolveEffectiveOrder 课程的有效内容顺序。
// 未 Launch 或没有 approved 版本时使用目录顺序；否则使用最新 approved 快照，
// 并把快照缺失的新增目录项补到所属单元末尾（Launch 后新增内容不会被静默跳过）。
func (s *ArrangementService) ResolveEffectiveOrder(courseID uint) (*ResolvedOrder, error) {
	if cached := s.cacheGet(courseID); cached != nil {
		return cached, nil
	}

	course, err := s.CourseRepo.FindCourseByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	catalog, err := s.catalogOrder(courseID)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedOrder{Version: 0, Items: catalog}

	if course.IsLaunched {
		latest, err := s.ArrangementRepo.LatestApproved(courseID)
		if err == nil {
			resolved = s.mergeArrangement(latest, catalog)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	s.cacheSet(courseID, resolved)
	return resolved, nil
}

// catalogOrder 原始目录顺序：单元按 Order，单元内先视频后文档
func (s *ArrangementService) catalogOrder(courseID uint) ([]ContentItem, error) {
	units, err := s.CourseRepo.ListUnits(courseID)
	if err != nil {
		return nil, err
	}

	var items []ContentItem
	for _, unit := range units {
		videos, err := s.CourseRepo.ListVideos(unit.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range videos {
			items = append(items, ContentItem{Type: model.ItemTypeVideo, ID: v.ID, UnitID: unit.ID})
		}
		docs, err := s.CourseRepo.ListDocuments(unit.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			items = append(items, ContentItem{Type: model.ItemTypeDocument, ID: d.ID, UnitID: unit.ID})
		}
	}
	return items, nil
}

// mergeArrangement 以 approved 快照为准，目录中快照没有的项补到所属单元末尾
func (s *ArrangementService) mergeArrangement(a *model.ContentArrangement, catalog []ContentItem) *ResolvedOrder {
	inSnapshot := make(map[string]bool, len(a.Items))
	var items []ContentItem
	for _, it := range a.Items {
		item := ContentItem{Type: it.ItemType, ID: it.ItemID, UnitID: it.UnitID}
		items = append(items, item)
		inSnapshot[item.Key()] = true
	}

	for _, c := range catalog {
		if inSnapshot[c.Key()] {
			continue
		}
		// 插入到该单元在快照中的最后一项之后
		insertAt := len(items)
		for i := len(items) - 1; i >= 0; i-- {
			if items[i].UnitID == c.UnitID {
				insertAt = i + 1
				break
			}
		}
		items = append(items[:insertAt], append([]ContentItem{c}, items[insertAt:]...)...)
	}

	return &ResolvedOrder{Version: a.Version, Items: items}
}

func (s *ArrangementService) cacheGet(courseID uint) *ResolvedOrder {
	if s.Redis == nil {
		return nil
	}
	ctx := context.Background()
	raw, err := s.Redis.Get(ctx, arrangementCacheKey(courseID)).Result()
	if err != nil {
		return nil
	}
	var resolved ResolvedOrder
	if err := json.Unmarshal([]byte(raw), &resolved); err != nil {
		return nil
	}
	return &resolved
}

func (s *ArrangementService) cacheSet(courseID uint, resolved *ResolvedOrder) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return
	}
	ttl := time.Duration(s.Cfg.Redis.ArrangementTTLSeconds) * time.Second
	if err := s.Redis.Set(context.Background(), arrangementCacheKey(courseID), raw, ttl).Err(); err != nil {
		logger.Log.Warn("arrangement cache set failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
}

// InvalidateCache 编排批准或目录变更后调用
func (s *ArrangementService) InvalidateCache(courseID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), arrangementCacheKey(courseID)).Err(); err != nil {
		logger.Log.Warn("arrangement cache invalidation failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
}

type ArrangementItemRequest struct {
	UnitID   uint                  `json:"unitId" binding:"required"`
	ItemType model.ContentItemType `json:"itemType" binding:"required"`
	ItemID   uint                  `json:"itemId" binding:"required"`
}

type ArrangementDraftRequest struct {
	Note  string                   `json:"note"`
	Items []ArrangementItemRequest `json:"items" binding:"required"`
}

// CreateDraft 新建 open 状态的编排草稿
func (s *ArrangementService) CreateDraft(submitterID, courseID uint, req ArrangementDraftRequest) (*model.ContentArrangement, error) {
	if _, err := s.CourseRepo.FindCourseByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	version, err := s.ArrangementRepo.NextVersion(courseID)
	if err != nil {
		return nil, err
	}

	arrangement := &model.ContentArrangement{
		CourseID:      courseID,
		Version:       version,
		Status:        model.ArrangementOpen,
		SubmittedByID: submitterID,
		Note:          req.Note,
	}
	for idx, it := range req.Items {
		arrangement.Items = append(arrangement.Items, model.ArrangementItem{
			UnitID:   it.UnitID,
			ItemType: it.ItemType,
			ItemID:   it.ItemID,
			Order:    idx + 1,
		})
	}

	if err := s.ArrangementRepo.Create(arrangement); err != nil {
		return nil, err
	}
	return arrangement, nil
}

func (s *ArrangementService) Submit(arrangementID uint) (*model.ContentArrangement, error) {
	a, err := s.ArrangementRepo.FindByID(arrangementID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.ArrangementOpen {
		return nil, util.ErrArrangementNotOpen
	}
	a.Status = model.ArrangementSubmitted
	if err := s.ArrangementRepo.Save(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Approve 批准后该版本立即成为权威顺序，缓存同时失效
func (s *ArrangementService) Approve(reviewerID, arrangementID uint) (*model.ContentArrangement, error) {
	a, err := s.ArrangementRepo.FindByID(arrangementID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.ArrangementSubmitted {
		return nil, util.ErrArrangementNotSubmitted
	}
	now := time.Now()
	a.Status = model.ArrangementApproved
	a.ReviewedByID = &reviewerID
	a.ReviewedAt = &now
	if err := s.ArrangementRepo.Save(a); err != nil {
		return nil, err
	}
	s.InvalidateCache(a.CourseID)
	return a, nil
}

func (s *ArrangementService) Reject(reviewerID, arrangementID uint) (*model.ContentArrangement, error) {
	a, err := s.ArrangementRepo.FindByID(arrangementID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.ArrangementSubmitted {
		return nil, util.ErrArrangementNotSubmitted
	}
	now := time.Now()
	a.Status = model.ArrangementRejected
	a.ReviewedByID = &reviewerID
	a.ReviewedAt = &now
	if err := s.ArrangementRepo.Save(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ArrangementService) ListVersions(courseID uint) ([]model.ContentArrangement, error) {
	return s.ArrangementRepo.ListByCourse(courseID)
}
