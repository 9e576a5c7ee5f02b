package service

import (
	"course_delivery_backend/internal/model"
)

// ContentItem 解析后顺序中的一项（视频或文档），带所属单元
type ContentItem struct {
	Type   model.ContentItemType `json:"type"`
	ID     uint                  `json:"id"`
	UnitID uint                  `json:"unitId"`
}

func (i ContentItem) Key() string {
	return model.ContentKey(i.Type, i.ID)
}

// CompletionView 解锁计算所需的完成状态快照，由进度记录构建
type CompletionView struct {
	CompletedVideos    map[uint]bool
	CompletedDocuments map[uint]bool
	// 按单元：测验是否已通过 / 单元是否有题库 / 是否处于待补学
	QuizPassed  map[uint]bool
	UnitHasQuiz map[uint]bool
	NeedsReview map[uint]bool
}

func (v CompletionView) itemCompleted(item ContentItem) bool {
	switch item.Type {
	case model.ItemTypeVideo:
		return v.CompletedVideos[item.ID]
	case model.ItemTypeDocument:
		return v.CompletedDocuments[item.ID]
	default:
		return false
	}
}

func (v CompletionView) clone() CompletionView {
	out := CompletionView{
		CompletedVideos:    make(map[uint]bool, len(v.CompletedVideos)),
		CompletedDocuments: make(map[uint]bool, len(v.CompletedDocuments)),
		QuizPassed:         make(map[uint]bool, len(v.QuizPassed)),
		UnitHasQuiz:        make(map[uint]bool, len(v.UnitHasQuiz)),
		NeedsReview:        make(map[uint]bool, len(v.NeedsReview)),
	}
	for k, b := range v.CompletedVideos {
		out.CompletedVideos[k] = b
	}
	for k, b := range v.CompletedDocuments {
		out.CompletedDocuments[k] = b
	}
	for k, b := range v.QuizPassed {
		out.QuizPassed[k] = b
	}
	for k, b := range v.UnitHasQuiz {
		out.UnitHasQuiz[k] = b
	}
	for k, b := range v.NeedsReview {
		out.NeedsReview[k] = b
	}
	return out
}

type unitGroup struct {
	unitID uint
	items  []ContentItem
}

func groupByUnit(order []ContentItem) []unitGroup {
	var groups []unitGroup
	for _, item := range order {
		if len(groups) == 0 || groups[len(groups)-1].unitID != item.UnitID {
			groups = append(groups, unitGroup{unitID: item.UnitID})
		}
		g := &groups[len(groups)-1]
		g.items = append(g.items, item)
	}
	return groups
}

// UnlockedItems 按当前有效顺序从头推演完整的已解锁集合。
// 规则：单元内逐项推进，当前项完成才解锁下一项；跨单元需要
// 本单元内容全部完成、测验（如有）已通过、且不处于待补学状态。
// 首个单元的首项无条件解锁，用于从不一致数据中恢复。
// 解锁判定永远基于当前有效顺序，不信任历史解锁时的旧顺序。
func UnlockedItems(order []ContentItem, view CompletionView) []ContentItem {
	groups := groupByUnit(order)
	var unlocked []ContentItem

	for _, g := range groups {
		if len(g.items) == 0 {
			continue
		}
		unlocked = append(unlocked, g.items[0])

		unitDone := true
		for idx, item := range g.items {
			if !view.itemCompleted(item) {
				unitDone = false
				break
			}
			if idx+1 < len(g.items) {
				unlocked = append(unlocked, g.items[idx+1])
			}
		}
		if !unitDone {
			break
		}
		// 补学门禁：新增内容未消化前不向后传播
		if view.NeedsReview[g.unitID] {
			break
		}
		if view.UnitHasQuiz[g.unitID] && !view.QuizPassed[g.unitID] {
			break
		}
	}

	return unlocked
}

// NextUnlocks 纯函数：justCompleted 完成后新增可解锁的项。
// 实现为两次推演的差集，保证与 UnlockedItems 永不产生分歧。
func NextUnlocks(order []ContentItem, view CompletionView, justCompleted ContentItem) []ContentItem {
	before := view.clone()
	switch justCompleted.Type {
	case model.ItemTypeVideo:
		delete(before.CompletedVideos, justCompleted.ID)
	case model.ItemTypeDocument:
		delete(before.CompletedDocuments, justCompleted.ID)
	case model.ItemTypeQuiz:
		delete(before.QuizPassed, justCompleted.UnitID)
	}

	prev := make(map[string]bool)
	for _, item := range UnlockedItems(order, before) {
		prev[item.Key()] = true
	}

	var added []ContentItem
	for _, item := range UnlockedItems(order, view) {
		if !prev[item.Key()] {
			added = append(added, item)
		}
	}
	return added
}
