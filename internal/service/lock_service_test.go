package service

import (
	"errors"
	"testing"

	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/util"
)

// 基础上限 3：第 3 次不及格提交触发 BELOW_PASSING_SCORE 锁，第 4 次出题被拒
func TestLockEngagesAtAttemptLimit(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	for i := 0; i < 2; i++ {
		result := e.failQuiz(t, f.student.ID, f.unit1.ID)
		if result.Lock != nil && result.Lock.IsLocked {
			t.Fatalf("locked after failure %d of 3", i+1)
		}
	}

	result := e.failQuiz(t, f.student.ID, f.unit1.ID)
	if result.Lock == nil || !result.Lock.IsLocked {
		t.Fatal("third failure must engage the lock")
	}
	if result.Lock.FailureReason != model.LockBelowPassingScore {
		t.Fatalf("failure reason = %s, want BELOW_PASSING_SCORE", result.Lock.FailureReason)
	}
	if result.Lock.UnlockAuthorizationLevel != model.Teacher {
		t.Fatalf("authorization level = %s, want teacher", result.Lock.UnlockAuthorizationLevel)
	}

	if _, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false); !errors.Is(err, util.ErrQuizNotAvailable) {
		t.Fatalf("generate after lock: err = %v, want ErrQuizNotAvailable", err)
	}
}

// 教师解锁把上限抬到 4，第 4 次作答放行，再失败后重新锁定
func TestTeacherUnlockPermitsOneMoreAttempt(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	for i := 0; i < 3; i++ {
		e.failQuiz(t, f.student.ID, f.unit1.ID)
	}

	teacher := e.mustCreateUser(t, model.Teacher)
	lock, err := e.lock.GrantUnlock(teacher, f.student.ID, f.pool1.ID, model.Teacher)
	if err != nil {
		t.Fatalf("grant unlock: %v", err)
	}
	if lock.TotalUnlockGrants() != 1 || lock.UnlockAuthorizationLevel != model.HOD {
		t.Fatalf("grants = %d level = %s, want 1/hod", lock.TotalUnlockGrants(), lock.UnlockAuthorizationLevel)
	}

	avail, err := e.gate.CheckAvailability(f.student.ID, f.unit1.ID)
	if err != nil {
		t.Fatalf("check availability: %v", err)
	}
	if !avail.Available || avail.AttemptLimit != 4 || avail.RemainingAttempts != 1 {
		t.Fatalf("avail = %+v, want available with limit 4 remaining 1", avail)
	}
	if avail.Lock.IsLocked {
		t.Fatal("lock must clear naturally once attempts are back under the limit")
	}

	result := e.failQuiz(t, f.student.ID, f.unit1.ID)
	if result.Lock == nil || !result.Lock.IsLocked {
		t.Fatal("fourth failure must re-engage the lock")
	}
}

// N 次解锁授予恰好换来 N 次追加作答机会，与层级组合无关
func TestUnlockGrantsAddExactlyOneAttemptEach(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	admin := e.mustCreateUser(t, model.Admin)

	tiers := []model.UserRole{model.Teacher, model.HOD, model.Dean, model.Admin}
	for i, tier := range tiers {
		// 耗尽当前上限
		for {
			avail, err := e.gate.CheckAvailability(f.student.ID, f.unit1.ID)
			if err != nil {
				t.Fatalf("check availability: %v", err)
			}
			if !avail.Available {
				break
			}
			e.failQuiz(t, f.student.ID, f.unit1.ID)
		}

		lock, err := e.lock.GrantUnlock(admin, f.student.ID, f.pool1.ID, tier)
		if err != nil {
			t.Fatalf("grant %s: %v", tier, err)
		}
		if lock.TotalUnlockGrants() != i+1 {
			t.Fatalf("grants = %d, want %d", lock.TotalUnlockGrants(), i+1)
		}

		avail, err := e.gate.CheckAvailability(f.student.ID, f.unit1.ID)
		if err != nil {
			t.Fatalf("check availability: %v", err)
		}
		if !avail.Available || avail.RemainingAttempts != 1 {
			t.Fatalf("after %s grant: avail=%v remaining=%d, want exactly one more attempt",
				tier, avail.Available, avail.RemainingAttempts)
		}
	}

	// admin 之后无更高层级
	if _, err := e.lock.GrantUnlock(admin, f.student.ID, f.pool1.ID, model.Admin); !errors.Is(err, util.ErrUnlockTierExhausted) {
		t.Fatalf("err = %v, want ErrUnlockTierExhausted", err)
	}
}

// 判定快照与解锁授予交错时，自然解锁不得用旧计数覆盖新授予
func TestLockRefreshPreservesInterleavedGrant(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	for i := 0; i < 3; i++ {
		e.failQuiz(t, f.student.ID, f.unit1.ID)
	}

	admin := e.mustCreateUser(t, model.Admin)
	if _, err := e.lock.GrantUnlock(admin, f.student.ID, f.pool1.ID, model.Teacher); err != nil {
		t.Fatalf("grant teacher: %v", err)
	}

	// 判定装载快照（1 次授予，上限 4，已用 3 → 走自然解锁路径）
	gc, err := e.gate.load(f.student.ID, f.unit1.ID)
	if err != nil {
		t.Fatalf("gate load: %v", err)
	}
	// 快照之后插入第二次授予
	if _, err := e.lock.GrantUnlock(admin, f.student.ID, f.pool1.ID, model.HOD); err != nil {
		t.Fatalf("grant hod: %v", err)
	}

	avail := e.gate.evaluate(gc)
	if !avail.Available {
		t.Fatalf("avail = %+v, want available after grants", avail)
	}
	if avail.Lock.TotalUnlockGrants != 2 {
		t.Fatalf("snapshot grants = %d after two grants, want 2", avail.Lock.TotalUnlockGrants)
	}

	lock, err := e.locksRepo.Find(f.student.ID, f.pool1.ID)
	if err != nil {
		t.Fatalf("find lock: %v", err)
	}
	if lock.TotalUnlockGrants() != 2 {
		t.Fatalf("persisted grants = %d after two grants, want 2", lock.TotalUnlockGrants())
	}
	if lock.IsLocked {
		t.Fatal("lock must clear once attempts are back under the limit")
	}
	if lock.UnlockAuthorizationLevel != model.Dean {
		t.Fatalf("authorization level = %s, want dean", lock.UnlockAuthorizationLevel)
	}
}

func TestGrantUnlockTierErrors(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	for i := 0; i < 3; i++ {
		e.failQuiz(t, f.student.ID, f.unit1.ID)
	}

	teacher := e.mustCreateUser(t, model.Teacher)
	hod := e.mustCreateUser(t, model.HOD)
	admin := e.mustCreateUser(t, model.Admin)

	// 越级：当前要求 teacher，直接给 hod
	if _, err := e.lock.GrantUnlock(hod, f.student.ID, f.pool1.ID, model.HOD); !errors.Is(err, util.ErrTierMismatch) {
		t.Fatalf("skip tier: err = %v, want ErrTierMismatch", err)
	}
	// 操作者角色低于所授层级
	if _, err := e.lock.GrantUnlock(teacher, f.student.ID, f.pool1.ID, model.Dean); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("underprivileged actor: err = %v, want ErrPermissionDenied", err)
	}
	// 非授权层级角色
	if _, err := e.lock.GrantUnlock(admin, f.student.ID, f.pool1.ID, model.Student); !errors.Is(err, util.ErrTierMismatch) {
		t.Fatalf("student tier: err = %v, want ErrTierMismatch", err)
	}
	// 无锁记录
	if _, err := e.lock.GrantUnlock(admin, f.student.ID, 9999, model.Teacher); !errors.Is(err, util.ErrLockNotFound) {
		t.Fatalf("missing lock: err = %v, want ErrLockNotFound", err)
	}

	// 正常消耗 teacher 层后，再给 teacher 视为并发冲突
	if _, err := e.lock.GrantUnlock(teacher, f.student.ID, f.pool1.ID, model.Teacher); err != nil {
		t.Fatalf("grant teacher: %v", err)
	}
	if _, err := e.lock.GrantUnlock(teacher, f.student.ID, f.pool1.ID, model.Teacher); !errors.Is(err, util.ErrUnlockConflict) {
		t.Fatalf("replayed tier: err = %v, want ErrUnlockConflict", err)
	}
}

// 单次会话违规达到阈值立即锁定，与剩余次数无关
func TestSevereViolationSessionLocksImmediately(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	view, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var answers []AnswerSubmission
	for _, q := range view.Questions {
		answers = append(answers, AnswerSubmission{QuestionID: q.QuestionID, SelectedOption: 1})
	}
	result, err := e.attempt.SubmitAttempt(f.student.ID, view.PublicID, SubmitAttemptRequest{
		Answers:        answers,
		TabSwitchCount: 6,
		Violations: []ViolationReport{
			{Type: model.ViolationTabSwitch},
			{Type: model.ViolationDevTools},
			{Type: model.ViolationClockTamper},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Lock == nil || !result.Lock.IsLocked {
		t.Fatal("violation threshold must lock on first failure")
	}
	if result.Lock.FailureReason != model.LockSecurityViolation {
		t.Fatalf("failure reason = %s, want SECURITY_VIOLATION", result.Lock.FailureReason)
	}
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		violationType  string
		tabSwitchCount int
		want           model.ViolationSeverity
	}{
		{model.ViolationClockTamper, 0, model.SeverityCritical},
		{model.ViolationDevTools, 0, model.SeverityHigh},
		{model.ViolationCopyPaste, 0, model.SeverityHigh},
		{model.ViolationTabSwitch, 1, model.SeverityLow},
		{model.ViolationTabSwitch, 3, model.SeverityMedium},
		{model.ViolationTabSwitch, 5, model.SeverityHigh},
		{model.ViolationFullscreenOut, 0, model.SeverityMedium},
		{"UNKNOWN", 0, model.SeverityLow},
	}
	for _, tt := range tests {
		if got := ClassifySeverity(tt.violationType, tt.tabSwitchCount); got != tt.want {
			t.Errorf("ClassifySeverity(%s, %d) = %s, want %s", tt.violationType, tt.tabSwitchCount, got, tt.want)
		}
	}
}
