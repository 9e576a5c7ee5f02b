package service

import (
	"errors"
	"testing"

	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/util"
)

// 已审核题数少于配置出题数时拒绝出题
func TestGenerateAttemptInsufficientApprovedQuestions(t *testing.T) {
	e := newTestEnv(t)
	student := e.mustCreateUser(t, model.Student)
	course := e.mustCreateCourse(t)
	unit := e.mustCreateUnit(t, course.ID, 1)
	video := e.mustCreateVideo(t, unit.ID, 1, 100)
	e.mustCreatePool(t, unit.ID, 1) // 配置要求 2 题
	e.completeVideo(t, student.ID, video.ID)

	_, avail, err := e.attempt.GenerateAttempt(student.ID, unit.ID, false)
	if !errors.Is(err, util.ErrInsufficientApprovedQuestions) {
		t.Fatalf("err = %v, want ErrInsufficientApprovedQuestions", err)
	}
	if avail == nil || !avail.Available {
		t.Fatal("gate itself passed, availability must accompany the rejection")
	}
}

func TestGenerateAttemptReusesIncomplete(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	first, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if second.PublicID != first.PublicID {
		t.Fatalf("got new attempt %s, want reuse of %s", second.PublicID, first.PublicID)
	}

	// 销毁重出：新试卷，且销毁的旧卷不计入尝试次数
	third, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, true)
	if err != nil {
		t.Fatalf("destroy and regenerate: %v", err)
	}
	if third.PublicID == first.PublicID {
		t.Fatal("destroyIncomplete must issue a fresh attempt")
	}
	taken, err := e.attempts.CountCompleted(f.student.ID, f.pool1.ID)
	if err != nil {
		t.Fatalf("count completed: %v", err)
	}
	if taken != 0 {
		t.Fatalf("taken = %d, destroyed drafts must not count", taken)
	}
}

// 判分：未作答计零分，得分率按快照分值计算
func TestSubmitAttemptGrading(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	view, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(view.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(view.Questions))
	}

	// 一题答对，一题不答
	result, err := e.attempt.SubmitAttempt(f.student.ID, view.PublicID, SubmitAttemptRequest{
		Answers: []AnswerSubmission{
			{QuestionID: view.Questions[0].QuestionID, SelectedOption: 0},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.MaxScore != 2 || result.Percentage != 50 {
		t.Fatalf("score = %d/%d (%d%%), want 1/2 (50%%)", result.Score, result.MaxScore, result.Percentage)
	}
	if result.Passed {
		t.Fatal("50 percent must not pass at a 70 percent threshold")
	}
}

// 二次提交按冲突处理：返回原始结果，不重新判分
func TestSubmitAttemptTwiceReturnsOriginal(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	view, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var correct []AnswerSubmission
	for _, q := range view.Questions {
		correct = append(correct, AnswerSubmission{QuestionID: q.QuestionID, SelectedOption: 0})
	}
	original, err := e.attempt.SubmitAttempt(f.student.ID, view.PublicID, SubmitAttemptRequest{Answers: correct})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 换一套全错答案重放
	var wrong []AnswerSubmission
	for _, q := range view.Questions {
		wrong = append(wrong, AnswerSubmission{QuestionID: q.QuestionID, SelectedOption: 1})
	}
	replay, err := e.attempt.SubmitAttempt(f.student.ID, view.PublicID, SubmitAttemptRequest{Answers: wrong})
	if !errors.Is(err, util.ErrAttemptAlreadySubmitted) {
		t.Fatalf("err = %v, want ErrAttemptAlreadySubmitted", err)
	}
	if replay == nil || replay.Percentage != original.Percentage || !replay.Passed {
		t.Fatalf("replay result = %+v, want original %+v", replay, original)
	}
}

func TestSubmitAttemptOwnership(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	view, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := e.mustCreateUser(t, model.Student)
	if _, err := e.attempt.SubmitAttempt(other.ID, view.PublicID, SubmitAttemptRequest{}); !errors.Is(err, util.ErrNotAttemptOwner) {
		t.Fatalf("err = %v, want ErrNotAttemptOwner", err)
	}
	if _, err := e.attempt.SubmitAttempt(f.student.ID, "no-such-attempt", SubmitAttemptRequest{}); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

// 自动提交与普通提交走同一判分路径
func TestAutoSubmitGradedIdentically(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	view, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var answers []AnswerSubmission
	for _, q := range view.Questions {
		answers = append(answers, AnswerSubmission{QuestionID: q.QuestionID, SelectedOption: 0})
	}
	result, err := e.attempt.SubmitAttempt(f.student.ID, view.PublicID, SubmitAttemptRequest{
		Answers:      answers,
		IsAutoSubmit: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Passed || !result.IsAutoSubmit {
		t.Fatalf("result = %+v, want passed auto-submit", result)
	}
}

// 通过后单元进度联动：单元完成、下一单元解锁
func TestPassingQuizCompletesUnit(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)
	e.passQuiz(t, f.student.ID, f.unit1.ID)

	p, err := e.progressRepo.FindByUserAndCourse(f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("find progress: %v", err)
	}
	var unit1Status model.UnitStatus
	unit2Unlocked := false
	for _, up := range p.Units {
		if up.UnitID == f.unit1.ID {
			unit1Status = up.Status
			if !up.UnitQuizPassed {
				t.Fatal("unit quiz pass not recorded")
			}
		}
		if up.UnitID == f.unit2.ID {
			unit2Unlocked = up.Unlocked
		}
	}
	if unit1Status != model.UnitCompleted {
		t.Fatalf("unit1 status = %s, want completed", unit1Status)
	}
	if !unit2Unlocked {
		t.Fatal("unit2 must unlock once unit1 passes its quiz")
	}
	if len(p.UnlockedVideoIDs) != 2 {
		t.Fatalf("unlocked videos = %v, want both units' first videos", p.UnlockedVideoIDs)
	}
}

func TestGetAttemptResultAccess(t *testing.T) {
	f := newGateFixture(t)
	e := f.env
	e.completeVideo(t, f.student.ID, f.v1.ID)

	view, _, err := e.attempt.GenerateAttempt(f.student.ID, f.unit1.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 未提交
	if _, err := e.attempt.GetAttemptResult(f.student, view.PublicID); !errors.Is(err, util.ErrAttemptNotSubmitted) {
		t.Fatalf("err = %v, want ErrAttemptNotSubmitted", err)
	}

	var answers []AnswerSubmission
	for _, q := range view.Questions {
		answers = append(answers, AnswerSubmission{QuestionID: q.QuestionID, SelectedOption: 0})
	}
	if _, err := e.attempt.SubmitAttempt(f.student.ID, view.PublicID, SubmitAttemptRequest{Answers: answers}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 本人与教学角色可查，其他学生不可
	if _, err := e.attempt.GetAttemptResult(f.student, view.PublicID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	teacher := e.mustCreateUser(t, model.Teacher)
	if _, err := e.attempt.GetAttemptResult(teacher, view.PublicID); err != nil {
		t.Fatalf("teacher read: %v", err)
	}
	other := e.mustCreateUser(t, model.Student)
	if _, err := e.attempt.GetAttemptResult(other, view.PublicID); !errors.Is(err, util.ErrNotAttemptOwner) {
		t.Fatalf("err = %v, want ErrNotAttemptOwner", err)
	}
}
