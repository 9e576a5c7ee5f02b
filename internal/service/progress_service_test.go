package service

import (
	"testing"

	"course_delivery_backend/internal/model"
)

// 首次上报惰性创建进度记录，且课程首项预先解锁
func TestRecordVideoProgressLazyCreation(t *testing.T) {
	e := newTestEnv(t)
	student := e.mustCreateUser(t, model.Student)
	course := e.mustCreateCourse(t)
	unit := e.mustCreateUnit(t, course.ID, 1)
	v1 := e.mustCreateVideo(t, unit.ID, 1, 100)
	e.mustCreateVideo(t, unit.ID, 2, 100)

	summary, err := e.progress.RecordVideoProgress(student.ID, v1.ID, VideoProgressRequest{
		TimeSpentSeconds: 10,
		PositionSeconds:  10,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	p, err := e.progressRepo.FindByUserAndCourse(student.ID, course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	if len(p.UnlockedVideoIDs) != 1 || p.UnlockedVideoIDs[0] != v1.ID {
		t.Fatalf("unlocked videos = %v, want [%d]", p.UnlockedVideoIDs, v1.ID)
	}
	if summary.OverallProgress != 0 {
		t.Fatalf("overall = %d, want 0", summary.OverallProgress)
	}
}

func TestVideoCompletionDualSignal(t *testing.T) {
	tests := []struct {
		name      string
		req       VideoProgressRequest
		completed bool
	}{
		{"显式完成", VideoProgressRequest{TimeSpentSeconds: 1, PositionSeconds: 1, Completed: true}, true},
		{"双信号达标", VideoProgressRequest{TimeSpentSeconds: 85, PositionSeconds: 85}, true},
		{"只有时长达标", VideoProgressRequest{TimeSpentSeconds: 90, PositionSeconds: 10}, false},
		{"只有位置达标", VideoProgressRequest{TimeSpentSeconds: 10, PositionSeconds: 90}, false},
		{"双信号都不足", VideoProgressRequest{TimeSpentSeconds: 50, PositionSeconds: 50}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			student := e.mustCreateUser(t, model.Student)
			course := e.mustCreateCourse(t)
			unit := e.mustCreateUnit(t, course.ID, 1)
			video := e.mustCreateVideo(t, unit.ID, 1, 100)

			if _, err := e.progress.RecordVideoProgress(student.ID, video.ID, tt.req); err != nil {
				t.Fatalf("record: %v", err)
			}

			p, err := e.progressRepo.FindByUserAndCourse(student.ID, course.ID)
			if err != nil {
				t.Fatalf("find progress: %v", err)
			}
			watch := p.Units[0].Watches[0]
			if watch.Completed != tt.completed {
				t.Fatalf("completed = %v, want %v", watch.Completed, tt.completed)
			}
		})
	}
}

// 完成标志单调：重看、少看都不会清掉
func TestVideoCompletionMonotonic(t *testing.T) {
	e := newTestEnv(t)
	student := e.mustCreateUser(t, model.Student)
	course := e.mustCreateCourse(t)
	unit := e.mustCreateUnit(t, course.ID, 1)
	video := e.mustCreateVideo(t, unit.ID, 1, 100)

	e.completeVideo(t, student.ID, video.ID)

	// 部分重看
	rewatches := []VideoProgressRequest{
		{TimeSpentSeconds: 5, PositionSeconds: 5},
		{TimeSpentSeconds: 0, PositionSeconds: 1},
		{TimeSpentSeconds: 2, PositionSeconds: 2, Completed: false},
	}
	for _, req := range rewatches {
		if _, err := e.progress.RecordVideoProgress(student.ID, video.ID, req); err != nil {
			t.Fatalf("rewatch: %v", err)
		}
	}

	p, err := e.progressRepo.FindByUserAndCourse(student.ID, course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	if !p.Units[0].Watches[0].Completed {
		t.Fatal("completion flag cleared by rewatch")
	}
}

func TestRecordDocumentReadIdempotent(t *testing.T) {
	e := newTestEnv(t)
	student := e.mustCreateUser(t, model.Student)
	course := e.mustCreateCourse(t)
	unit := e.mustCreateUnit(t, course.ID, 1)
	doc := e.mustCreateDocument(t, unit.ID, 1)

	first, err := e.progress.RecordDocumentRead(student.ID, doc.ID)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := e.progress.RecordDocumentRead(student.ID, doc.ID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(first.NewlyUnlocked) == 0 && len(second.NewlyUnlocked) != 0 {
		t.Fatalf("second read unlocked %v, want none", second.NewlyUnlocked)
	}

	p, err := e.progressRepo.FindByUserAndCourse(student.ID, course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	if len(p.CompletedDocumentIDs) != 1 {
		t.Fatalf("completed documents = %v, want exactly one", p.CompletedDocumentIDs)
	}
}

// Scenario: 2 个视频无测验的单元，逐项解锁并跨单元传播
func TestUnlockPropagationAcrossUnits(t *testing.T) {
	e := newTestEnv(t)
	student := e.mustCreateUser(t, model.Student)
	course := e.mustCreateCourse(t)
	unit1 := e.mustCreateUnit(t, course.ID, 1)
	unit2 := e.mustCreateUnit(t, course.ID, 2)
	v1 := e.mustCreateVideo(t, unit1.ID, 1, 100)
	v2 := e.mustCreateVideo(t, unit1.ID, 2, 100)
	v3 := e.mustCreateVideo(t, unit2.ID, 1, 100)

	summary := e.completeVideo(t, student.ID, v1.ID)
	if len(summary.NewlyUnlocked) != 1 || summary.NewlyUnlocked[0].ID != v2.ID {
		t.Fatalf("after v1: newly unlocked = %v, want [video %d]", summary.NewlyUnlocked, v2.ID)
	}

	summary = e.completeVideo(t, student.ID, v2.ID)
	if len(summary.NewlyUnlocked) != 1 || summary.NewlyUnlocked[0].ID != v3.ID {
		t.Fatalf("after v2: newly unlocked = %v, want [video %d]", summary.NewlyUnlocked, v3.ID)
	}

	p, err := e.progressRepo.FindByUserAndCourse(student.ID, course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	for _, up := range p.Units {
		if up.UnitID == unit1.ID && up.Status != model.UnitCompleted {
			t.Fatalf("unit1 status = %s, want completed", up.Status)
		}
		if up.UnitID == unit2.ID && !up.Unlocked {
			t.Fatal("unit2 not unlocked after unit1 completion")
		}
	}
}

// 总进度封顶 100：完成记录多于当前顺序的总项数也不能超
func TestOverallProgressCappedAt100(t *testing.T) {
	e := newTestEnv(t)
	student := e.mustCreateUser(t, model.Student)
	course := e.mustCreateCourse(t)
	unit := e.mustCreateUnit(t, course.ID, 1)
	v1 := e.mustCreateVideo(t, unit.ID, 1, 100)
	v2 := e.mustCreateVideo(t, unit.ID, 2, 100)

	e.completeVideo(t, student.ID, v1.ID)
	e.completeVideo(t, student.ID, v2.ID)

	// v2 被移出目录：完成数 2 > 总项数 1
	if err := e.db.Delete(&model.Video{}, v2.ID).Error; err != nil {
		t.Fatalf("delete video: %v", err)
	}

	status, err := e.progress.GetProgressionStatus(student.ID, course.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.OverallProgress > 100 {
		t.Fatalf("overall = %d, must not exceed 100", status.OverallProgress)
	}
	if status.OverallProgress != 100 {
		t.Fatalf("overall = %d, want capped 100", status.OverallProgress)
	}
}

func TestGetProgressionStatusBlockedUnits(t *testing.T) {
	e := newTestEnv(t)
	student := e.mustCreateUser(t, model.Student)
	course := e.mustCreateCourse(t)
	unit1 := e.mustCreateUnit(t, course.ID, 1)
	unit2 := e.mustCreateUnit(t, course.ID, 2)
	e.mustCreateVideo(t, unit1.ID, 1, 100)
	e.mustCreateVideo(t, unit2.ID, 1, 100)

	status, err := e.progress.GetProgressionStatus(student.ID, course.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.NextAvailableUnit != unit1.ID {
		t.Fatalf("next available = %d, want %d", status.NextAvailableUnit, unit1.ID)
	}
	if len(status.BlockedUnits) != 1 || status.BlockedUnits[0] != unit2.ID {
		t.Fatalf("blocked = %v, want [%d]", status.BlockedUnits, unit2.ID)
	}
}
