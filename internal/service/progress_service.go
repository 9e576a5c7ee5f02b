package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService 进度追踪：学生×课程进度记录的唯一写入方。
// 完成事件与其触发的解锁传播在同一事务内落库；传播计算失败时
// 先保住触发事件本身，传播推迟到下次读取时补算。
type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	QuizRepo     *repository.QuizRepository
	Arrangements *ArrangementService
	Keys         *util.KeyedMutex
	DB           *gorm.DB
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	quizRepo *repository.QuizRepository,
	arrangements *ArrangementService,
	keys *util.KeyedMutex,
	db *gorm.DB,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		QuizRepo:     quizRepo,
		Arrangements: arrangements,
		Keys:         keys,
		DB:           db,
	}
}

type VideoProgressRequest struct {
	TimeSpentSeconds int  `json:"timeSpentSeconds"`
	PositionSeconds  int  `json:"positionSeconds"`
	Completed        bool `json:"completed"`
}

type ProgressSummary struct {
	CourseID        uint             `json:"courseId"`
	OverallProgress int              `json:"overallProgress"`
	NewlyUnlocked   []ContentItem    `json:"newlyUnlocked"`
	Units           []UnitStatusView `json:"units"`
}

type UnitStatusView struct {
	UnitID             uint             `json:"unitId"`
	Status             model.UnitStatus `json:"status"`
	Unlocked           bool             `json:"unlocked"`
	UnitQuizCompleted  bool             `json:"unitQuizCompleted"`
	UnitQuizPassed     bool             `json:"unitQuizPassed"`
	PendingContentKeys []string         `json:"pendingContentKeys,omitempty"`
}

type ProgressionStatus struct {
	CourseID          uint             `json:"courseId"`
	OverallProgress   int              `json:"overallProgress"`
	NextAvailableUnit uint             `json:"nextAvailableUnit"`
	BlockedUnits      []uint           `json:"blockedUnits"`
	Units             []UnitStatusView `json:"units"`
}

func progressKey(userID, courseID uint) string {
	return fmt.Sprintf("progress:%d:%d", userID, courseID)
}

// RecordVideoProgress 视频观看事件。完成判定采用双信号规则：
// 调用方显式声明完成，或 观看时长 与 最后播放位置 同时达到时长的 85%。
// 完成标志单调，重看不会清除。
func (s *ProgressService) RecordVideoProgress(userID, videoID uint, req VideoProgressRequest) (*ProgressSummary, error) {
	video, err := s.CourseRepo.FindVideoByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVideoNotFound
		}
		return nil, err
	}
	unit, err := s.CourseRepo.FindUnitByID(video.UnitID)
	if err != nil {
		return nil, err
	}

	unlock := s.Keys.Lock(progressKey(userID, unit.CourseID))
	defer unlock()

	state, err := s.loadState(userID, unit.CourseID)
	if err != nil {
		return nil, err
	}

	up := state.ensureUnitProgress(unit.ID)
	watch := ensureWatch(up, videoID)

	watch.TimeSpentSeconds += req.TimeSpentSeconds
	if req.PositionSeconds > watch.LastPositionSeconds {
		watch.LastPositionSeconds = req.PositionSeconds
	}

	justCompleted := false
	if !watch.Completed {
		threshold := video.DurationSeconds * util.VideoCompletionPercent / 100
		dualSignal := video.DurationSeconds > 0 &&
			watch.TimeSpentSeconds >= threshold &&
			watch.LastPositionSeconds >= threshold
		if req.Completed || dualSignal {
			now := time.Now()
			watch.Completed = true
			watch.CompletedAt = &now
			justCompleted = true
		}
	}

	var completedItem *ContentItem
	if justCompleted {
		completedItem = &ContentItem{Type: model.ItemTypeVideo, ID: videoID, UnitID: unit.ID}
	}
	return s.commit(state, completedItem)
}

// RecordDocumentRead 文档标记已读，幂等
func (s *ProgressService) RecordDocumentRead(userID, documentID uint) (*ProgressSummary, error) {
	doc, err := s.CourseRepo.FindDocumentByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDocumentNotFound
		}
		return nil, err
	}
	unit, err := s.CourseRepo.FindUnitByID(doc.UnitID)
	if err != nil {
		return nil, err
	}

	unlock := s.Keys.Lock(progressKey(userID, unit.CourseID))
	defer unlock()

	state, err := s.loadState(userID, unit.CourseID)
	if err != nil {
		return nil, err
	}

	state.ensureUnitProgress(unit.ID)

	justCompleted := false
	if !containsID(state.progress.CompletedDocumentIDs, documentID) {
		state.progress.CompletedDocumentIDs = append(state.progress.CompletedDocumentIDs, documentID)
		justCompleted = true
	}

	var completedItem *ContentItem
	if justCompleted {
		completedItem = &ContentItem{Type: model.ItemTypeDocument, ID: documentID, UnitID: unit.ID}
	}
	return s.commit(state, completedItem)
}

// RecordQuizResult 测验判分后的进度回写（由作答引擎调用）
func (s *ProgressService) RecordQuizResult(userID, courseID, unitID uint, passed bool) (*ProgressSummary, error) {
	unlock := s.Keys.Lock(progressKey(userID, courseID))
	defer unlock()

	state, err := s.loadState(userID, courseID)
	if err != nil {
		return nil, err
	}

	up := state.ensureUnitProgress(unitID)
	up.UnitQuizCompleted = true
	if passed && !up.UnitQuizPassed {
		up.UnitQuizPassed = true
		return s.commit(state, &ContentItem{Type: model.ItemTypeQuiz, UnitID: unitID})
	}
	return s.commit(state, nil)
}

// GetProgressionStatus 课程进度总览；读路径同时补算此前推迟的解锁传播
func (s *ProgressService) GetProgressionStatus(userID, courseID uint) (*ProgressionStatus, error) {
	unlock := s.Keys.Lock(progressKey(userID, courseID))
	defer unlock()

	state, err := s.loadState(userID, courseID)
	if err != nil {
		return nil, err
	}

	summary, err := s.commit(state, nil)
	if err != nil {
		return nil, err
	}

	status := &ProgressionStatus{
		CourseID:        courseID,
		OverallProgress: summary.OverallProgress,
		Units:           summary.Units,
	}

	groups := groupByUnit(state.resolved.Items)
	unlockedUnits := make(map[uint]bool)
	for _, item := range UnlockedItems(state.resolved.Items, state.view) {
		unlockedUnits[item.UnitID] = true
	}
	for _, g := range groups {
		if !unlockedUnits[g.unitID] {
			status.BlockedUnits = append(status.BlockedUnits, g.unitID)
			continue
		}
		up := state.findUnitProgress(g.unitID)
		if up != nil && up.Status == model.UnitNeedsReview {
			status.BlockedUnits = append(status.BlockedUnits, g.unitID)
		}
		if status.NextAvailableUnit == 0 && (up == nil || up.Status != model.UnitCompleted) {
			status.NextAvailableUnit = g.unitID
		}
	}

	return status, nil
}

// ---- 内部状态装配 ----

type progressState struct {
	userID   uint
	courseID uint
	progress *model.CourseProgress
	resolved *ResolvedOrder
	// 单元 → 是否有题库
	pools map[uint]bool
	view  CompletionView
	fresh bool
}

// loadState 装载（或惰性创建）进度记录与当前有效顺序
func (s *ProgressService) loadState(userID, courseID uint) (*progressState, error) {
	resolved, err := s.Arrangements.ResolveEffectiveOrder(courseID)
	if err != nil {
		return nil, err
	}

	pools, err := s.unitPools(resolved)
	if err != nil {
		return nil, err
	}

	state := &progressState{
		userID:   userID,
		courseID: courseID,
		resolved: resolved,
		pools:    pools,
	}

	progress, err := s.ProgressRepo.FindByUserAndCourse(userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 惰性创建：首个内容项预先解锁
		progress = &model.CourseProgress{
			UserID:             userID,
			CourseID:           courseID,
			ArrangementVersion: resolved.Version,
			LastActivityAt:     time.Now(),
		}
		state.progress = progress
		state.fresh = true
		state.rebuildView()
		return state, nil
	}
	if err != nil {
		return nil, err
	}

	state.progress = progress
	state.rebuildView()
	return state, nil
}

func (s *ProgressService) unitPools(resolved *ResolvedOrder) (map[uint]bool, error) {
	var unitIDs []uint
	seen := make(map[uint]bool)
	for _, item := range resolved.Items {
		if !seen[item.UnitID] {
			seen[item.UnitID] = true
			unitIDs = append(unitIDs, item.UnitID)
		}
	}
	pools, err := s.QuizRepo.ListPoolsByUnits(unitIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(pools))
	for _, p := range pools {
		out[p.UnitID] = true
	}
	return out, nil
}

func (st *progressState) rebuildView() {
	view := CompletionView{
		CompletedVideos:    make(map[uint]bool),
		CompletedDocuments: make(map[uint]bool),
		QuizPassed:         make(map[uint]bool),
		UnitHasQuiz:        st.pools,
		NeedsReview:        make(map[uint]bool),
	}
	for i := range st.progress.Units {
		up := &st.progress.Units[i]
		if up.Status == model.UnitNeedsReview {
			view.NeedsReview[up.UnitID] = true
		}
		if up.UnitQuizPassed {
			view.QuizPassed[up.UnitID] = true
		}
		for _, w := range up.Watches {
			if w.Completed {
				view.CompletedVideos[w.VideoID] = true
			}
		}
	}
	for _, id := range st.progress.CompletedDocumentIDs {
		view.CompletedDocuments[id] = true
	}
	st.view = view
}

func (st *progressState) ensureUnitProgress(unitID uint) *model.UnitProgress {
	if up := st.findUnitProgress(unitID); up != nil {
		return up
	}
	st.progress.Units = append(st.progress.Units, model.UnitProgress{
		UserID: st.userID,
		UnitID: unitID,
		Status: model.UnitLocked,
	})
	return &st.progress.Units[len(st.progress.Units)-1]
}

func (st *progressState) findUnitProgress(unitID uint) *model.UnitProgress {
	for i := range st.progress.Units {
		if st.progress.Units[i].UnitID == unitID {
			return &st.progress.Units[i]
		}
	}
	return nil
}

func ensureWatch(up *model.UnitProgress, videoID uint) *model.VideoWatch {
	for i := range up.Watches {
		if up.Watches[i].VideoID == videoID {
			return &up.Watches[i]
		}
	}
	up.Watches = append(up.Watches, model.VideoWatch{VideoID: videoID})
	return &up.Watches[len(up.Watches)-1]
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// commit 触发事件与解锁传播一并落库。
// 传播在内存中基于当前有效顺序计算；计算阶段出错时仍提交核心
// 记录并记日志，传播由下一次读取补齐。
func (s *ProgressService) commit(state *progressState, justCompleted *ContentItem) (*ProgressSummary, error) {
	state.rebuildView()

	var newly []ContentItem
	if justCompleted != nil {
		newly = NextUnlocks(state.resolved.Items, state.view, *justCompleted)
	}

	propagated := true
	if err := s.applyPropagation(state, justCompleted); err != nil {
		// 传播失败不丢事件；连同旧状态写回，下次读取重算
		logger.Log.Error("unlock propagation deferred",
			zap.Uint("userId", state.userID),
			zap.Uint("courseId", state.courseID),
			zap.Error(err))
		propagated = false
	}

	state.progress.LastActivityAt = time.Now()
	state.progress.ArrangementVersion = state.resolved.Version

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(state.progress).Error
	})
	if err != nil {
		return nil, err
	}

	summary := &ProgressSummary{
		CourseID:        state.courseID,
		OverallProgress: state.progress.OverallProgress,
		NewlyUnlocked:   newly,
	}
	if !propagated {
		summary.NewlyUnlocked = nil
	}
	for i := range state.progress.Units {
		up := &state.progress.Units[i]
		summary.Units = append(summary.Units, UnitStatusView{
			UnitID:             up.UnitID,
			Status:             up.Status,
			Unlocked:           up.Unlocked,
			UnitQuizCompleted:  up.UnitQuizCompleted,
			UnitQuizPassed:     up.UnitQuizPassed,
			PendingContentKeys: up.PendingContentKeys,
		})
	}
	return summary, nil
}

// applyPropagation 把推演出的解锁集合与单元状态写进内存中的进度记录
func (s *ProgressService) applyPropagation(state *progressState, justCompleted *ContentItem) error {
	// 补学消化：needs_review 单元完成新增项后从待学列表移除
	if justCompleted != nil && justCompleted.Type != model.ItemTypeQuiz {
		if up := state.findUnitProgress(justCompleted.UnitID); up != nil && up.Status == model.UnitNeedsReview {
			key := justCompleted.Key()
			var remaining []string
			for _, k := range up.PendingContentKeys {
				if k != key {
					remaining = append(remaining, k)
				}
			}
			up.PendingContentKeys = remaining
			if len(remaining) == 0 {
				up.Status = model.UnitCompleted
			}
			state.rebuildView()
		}
	}

	unlocked := UnlockedItems(state.resolved.Items, state.view)

	var videoIDs, docIDs []uint
	unlockedUnits := make(map[uint]bool)
	for _, item := range unlocked {
		unlockedUnits[item.UnitID] = true
		switch item.Type {
		case model.ItemTypeVideo:
			videoIDs = append(videoIDs, item.ID)
		case model.ItemTypeDocument:
			docIDs = append(docIDs, item.ID)
		}
	}
	// 解锁集合只增不减：内容移出编排后已有解锁保留（完成记录同理）
	state.progress.UnlockedVideoIDs = mergeIDs(state.progress.UnlockedVideoIDs, videoIDs)
	state.progress.UnlockedDocumentIDs = mergeIDs(state.progress.UnlockedDocumentIDs, docIDs)

	now := time.Now()
	groups := groupByUnit(state.resolved.Items)
	for _, g := range groups {
		if !unlockedUnits[g.unitID] {
			continue
		}
		up := state.ensureUnitProgress(g.unitID)
		if !up.Unlocked {
			up.Unlocked = true
			up.UnlockedAt = &now
		}
		if up.Status == model.UnitLocked {
			up.Status = model.UnitInProgress
		}
		if up.Status == model.UnitInProgress && unitContentComplete(g, state.view) {
			hasQuiz := state.pools[g.unitID]
			if !hasQuiz || up.UnitQuizPassed {
				up.Status = model.UnitCompleted
			}
		}
	}

	return s.recomputeOverall(state)
}

func unitContentComplete(g unitGroup, view CompletionView) bool {
	for _, item := range g.items {
		if !view.itemCompleted(item) {
			return false
		}
	}
	return true
}

func mergeIDs(existing, add []uint) []uint {
	seen := make(map[uint]bool, len(existing))
	out := existing
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range add {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// recomputeOverall 派生总进度 = 已完成项 / 总项数（视频+文档+单元测验），封顶 100。
// 完成计数来自记录本身，内容被后续编排移除时可能超过当前总数，因此必须封顶。
func (s *ProgressService) recomputeOverall(state *progressState) error {
	completed := 0
	for i := range state.progress.Units {
		up := &state.progress.Units[i]
		for _, w := range up.Watches {
			if w.Completed {
				completed++
			}
		}
		if up.UnitQuizPassed {
			completed++
		}
	}
	completed += len(state.progress.CompletedDocumentIDs)

	total := len(state.resolved.Items)
	for _, hasQuiz := range state.pools {
		if hasQuiz {
			total++
		}
	}

	if total == 0 {
		state.progress.OverallProgress = 0
		return nil
	}
	percent := int(math.Round(float64(completed) / float64(total) * 100))
	if percent > 100 {
		percent = 100
	}
	state.progress.OverallProgress = percent
	return nil
}
