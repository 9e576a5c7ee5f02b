package service

import (
	"testing"

	"course_delivery_backend/internal/model"
)

func emptyView() CompletionView {
	return CompletionView{
		CompletedVideos:    map[uint]bool{},
		CompletedDocuments: map[uint]bool{},
		QuizPassed:         map[uint]bool{},
		UnitHasQuiz:        map[uint]bool{},
		NeedsReview:        map[uint]bool{},
	}
}

func keys(items []ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key()
	}
	return out
}

func assertKeys(t *testing.T, got []ContentItem, want ...string) {
	t.Helper()
	gotKeys := keys(got)
	if len(gotKeys) != len(want) {
		t.Fatalf("unlocked = %v, want %v", gotKeys, want)
	}
	for i := range want {
		if gotKeys[i] != want[i] {
			t.Fatalf("unlocked = %v, want %v", gotKeys, want)
		}
	}
}

func TestUnlockedItemsFirstItemAlwaysUnlocked(t *testing.T) {
	order := []ContentItem{
		{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 2, UnitID: 10},
	}
	assertKeys(t, UnlockedItems(order, emptyView()), "video:1")
}

// 单元内逐项推进：完成一项只解锁下一项，不向前跳
func TestUnlockedItemsStepwiseWithinUnit(t *testing.T) {
	order := []ContentItem{
		{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 2, UnitID: 10},
		{Type: model.ItemTypeDocument, ID: 3, UnitID: 10},
	}
	view := emptyView()
	view.CompletedVideos[1] = true

	assertKeys(t, UnlockedItems(order, view), "video:1", "video:2")
}

// Scenario: 两个视频无测验的单元，看完第二个解锁下一单元首项
func TestUnlockedItemsCrossUnitWithoutQuiz(t *testing.T) {
	order := []ContentItem{
		{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 2, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 3, UnitID: 20},
		{Type: model.ItemTypeVideo, ID: 4, UnitID: 20},
	}
	view := emptyView()
	view.CompletedVideos[1] = true

	// 只完成第一个：第二个解锁，下一单元仍锁
	assertKeys(t, UnlockedItems(order, view), "video:1", "video:2")

	view.CompletedVideos[2] = true
	// 两个都完成：解锁下一单元首项，不再向前
	assertKeys(t, UnlockedItems(order, view), "video:1", "video:2", "video:3")
}

func TestUnlockedItemsQuizGatesUnitBoundary(t *testing.T) {
	order := []ContentItem{
		{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 2, UnitID: 20},
	}
	view := emptyView()
	view.CompletedVideos[1] = true
	view.UnitHasQuiz[10] = true

	// 内容完成但测验未过：不跨单元
	assertKeys(t, UnlockedItems(order, view), "video:1")

	view.QuizPassed[10] = true
	assertKeys(t, UnlockedItems(order, view), "video:1", "video:2")
}

func TestUnlockedItemsNeedsReviewBlocksPropagation(t *testing.T) {
	order := []ContentItem{
		{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 2, UnitID: 20},
	}
	view := emptyView()
	view.CompletedVideos[1] = true
	view.NeedsReview[10] = true

	assertKeys(t, UnlockedItems(order, view), "video:1")

	delete(view.NeedsReview, 10)
	assertKeys(t, UnlockedItems(order, view), "video:1", "video:2")
}

// 解锁永远基于当前顺序：重排后按新顺序推演
func TestUnlockedItemsUsesCurrentOrder(t *testing.T) {
	view := emptyView()
	view.CompletedVideos[2] = true

	reordered := []ContentItem{
		{Type: model.ItemTypeVideo, ID: 2, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
	}
	assertKeys(t, UnlockedItems(reordered, view), "video:2", "video:1")
}

func TestNextUnlocksDiff(t *testing.T) {
	order := []ContentItem{
		{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 2, UnitID: 10},
		{Type: model.ItemTypeVideo, ID: 3, UnitID: 20},
	}

	tests := []struct {
		name      string
		completed func(CompletionView)
		just      ContentItem
		want      []string
	}{
		{
			name:      "完成首项解锁次项",
			completed: func(v CompletionView) { v.CompletedVideos[1] = true },
			just:      ContentItem{Type: model.ItemTypeVideo, ID: 1, UnitID: 10},
			want:      []string{"video:2"},
		},
		{
			name: "完成末项解锁下一单元首项",
			completed: func(v CompletionView) {
				v.CompletedVideos[1] = true
				v.CompletedVideos[2] = true
			},
			just: ContentItem{Type: model.ItemTypeVideo, ID: 2, UnitID: 10},
			want: []string{"video:3"},
		},
		{
			name: "测验通过解锁下一单元",
			completed: func(v CompletionView) {
				v.CompletedVideos[1] = true
				v.CompletedVideos[2] = true
				v.UnitHasQuiz[10] = true
				v.QuizPassed[10] = true
			},
			just: ContentItem{Type: model.ItemTypeQuiz, UnitID: 10},
			want: []string{"video:3"},
		},
		{
			name:      "重复完成不产生新解锁",
			completed: func(v CompletionView) { v.CompletedVideos[2] = true },
			just:      ContentItem{Type: model.ItemTypeVideo, ID: 2, UnitID: 10},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := emptyView()
			tt.completed(view)
			got := keys(NextUnlocks(order, view, tt.just))
			if len(got) != len(tt.want) {
				t.Fatalf("NextUnlocks = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("NextUnlocks = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
