package service

import (
	"testing"

	"course_delivery_backend/internal/model"
)

// 未上线课程新增内容不回退任何人
func TestHandleContentAddedSkipsUnlaunchedCourse(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	e.passQuiz(t, f.student.ID, f.unit1.ID)

	extra := e.mustCreateVideo(t, f.unit1.ID, 2, 100)
	affected, err := e.revalidation.HandleContentAdded(f.unit1.ID, ContentItem{
		Type: model.ItemTypeVideo, ID: extra.ID, UnitID: f.unit1.ID,
	})
	if err != nil {
		t.Fatalf("handle content added: %v", err)
	}
	if affected != 0 {
		t.Fatalf("affected = %d, want 0 before launch", affected)
	}
}

// 只有已完成该单元的学生被回退，进行中的不受影响
func TestHandleContentAddedMarksOnlyCompletedStudents(t *testing.T) {
	f := newGateFixture(t)
	e := f.env

	done := f.student
	e.completeVideo(t, done.ID, f.v1.ID)
	e.passQuiz(t, done.ID, f.unit1.ID)

	partway := e.mustCreateUser(t, model.Student)
	if _, err := e.progress.RecordVideoProgress(partway.ID, f.v1.ID, VideoProgressRequest{
		TimeSpentSeconds: 10, PositionSeconds: 10,
	}); err != nil {
		t.Fatalf("record partial progress: %v", err)
	}

	if err := e.courses.Launch(f.course.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}

	// 通过目录服务新增内容，重校验挂钩在写入路径上
	extra, err := e.catalog.AddVideo(f.unit1.ID, VideoRequest{Title: "补充视频", Order: 2, DurationSeconds: 100})
	if err != nil {
		t.Fatalf("add video: %v", err)
	}

	dp, err := e.progressRepo.FindByUserAndCourse(done.ID, f.course.ID)
	if err != nil {
		t.Fatalf("find done progress: %v", err)
	}
	up := findUnit(t, dp, f.unit1.ID)
	if up.Status != model.UnitNeedsReview {
		t.Fatalf("status = %s, want needs_review", up.Status)
	}
	wantKey := model.ContentKey(model.ItemTypeVideo, extra.ID)
	if len(up.PendingContentKeys) != 1 || up.PendingContentKeys[0] != wantKey {
		t.Fatalf("pending = %v, want [%s]", up.PendingContentKeys, wantKey)
	}

	pp, err := e.progressRepo.FindByUserAndCourse(partway.ID, f.course.ID)
	if err != nil {
		t.Fatalf("find partway progress: %v", err)
	}
	if st := findUnit(t, pp, f.unit1.ID).Status; st == model.UnitNeedsReview {
		t.Fatalf("in-progress student demoted to %s", st)
	}
}

// needs_review 阻断向后续单元的传播，消化增量后恢复
func TestNeedsReviewBlocksThenCatchupRestores(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	e.passQuiz(t, f.student.ID, f.unit1.ID)
	if err := e.courses.Launch(f.course.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}

	extra := e.mustCreateVideo(t, f.unit1.ID, 2, 100)
	if _, err := e.revalidation.HandleContentAdded(f.unit1.ID, ContentItem{
		Type: model.ItemTypeVideo, ID: extra.ID, UnitID: f.unit1.ID,
	}); err != nil {
		t.Fatalf("handle content added: %v", err)
	}

	status, err := e.progress.GetProgressionStatus(f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !containsUint(status.BlockedUnits, f.unit1.ID) || !containsUint(status.BlockedUnits, f.unit2.ID) {
		t.Fatalf("blocked = %v, want unit1 and unit2", status.BlockedUnits)
	}

	// 已有解锁不回收：回退期间 unit2 保持可见
	p, err := e.progressRepo.FindByUserAndCourse(f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	if !containsID(p.UnlockedVideoIDs, f.v2.ID) {
		t.Fatalf("unlocked videos = %v, revalidation must not revoke %d", p.UnlockedVideoIDs, f.v2.ID)
	}

	e.completeVideo(t, f.student.ID, extra.ID)

	status, err = e.progress.GetProgressionStatus(f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("status after catchup: %v", err)
	}
	if containsUint(status.BlockedUnits, f.unit1.ID) || containsUint(status.BlockedUnits, f.unit2.ID) {
		t.Fatalf("blocked = %v, catchup must lift the block", status.BlockedUnits)
	}

	p, err = e.progressRepo.FindByUserAndCourse(f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	up := findUnit(t, p, f.unit1.ID)
	if up.Status != model.UnitCompleted || len(up.PendingContentKeys) != 0 {
		t.Fatalf("status = %s pending = %v, want completed with nothing pending", up.Status, up.PendingContentKeys)
	}
}

// 巡检：待学项被移出目录后，滞留的 needs_review 恢复为 completed
func TestSweepClearsStalePendingKeys(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	e.passQuiz(t, f.student.ID, f.unit1.ID)
	if err := e.courses.Launch(f.course.ID); err != nil {
		t.Fatalf("launch: %v", err)
	}

	extra := e.mustCreateVideo(t, f.unit1.ID, 2, 100)
	if _, err := e.revalidation.HandleContentAdded(f.unit1.ID, ContentItem{
		Type: model.ItemTypeVideo, ID: extra.ID, UnitID: f.unit1.ID,
	}); err != nil {
		t.Fatalf("handle content added: %v", err)
	}

	// 待学项仍在目录中：巡检不动它
	if err := e.revalidation.Sweep(50); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	p, err := e.progressRepo.FindByUserAndCourse(f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	if st := findUnit(t, p, f.unit1.ID).Status; st != model.UnitNeedsReview {
		t.Fatalf("status = %s, sweep must not clear live pending items", st)
	}

	// 新增视频又被移出目录，待学项悬空
	if err := e.db.Delete(&model.Video{}, extra.ID).Error; err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if err := e.revalidation.Sweep(50); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	p, err = e.progressRepo.FindByUserAndCourse(f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	up := findUnit(t, p, f.unit1.ID)
	if up.Status != model.UnitCompleted || len(up.PendingContentKeys) != 0 {
		t.Fatalf("status = %s pending = %v, want completed with nothing pending", up.Status, up.PendingContentKeys)
	}
}

func findUnit(t *testing.T, p *model.CourseProgress, unitID uint) *model.UnitProgress {
	t.Helper()
	for i := range p.Units {
		if p.Units[i].UnitID == unitID {
			return &p.Units[i]
		}
	}
	t.Fatalf("unit %d missing from progress record", unitID)
	return nil
}

func containsUint(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
