package util

import "course_delivery_backend/internal/constant"

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// 进度与测验的全局默认值定义在 internal/constant（无依赖的叶子包），此处转发以保持现有引用
const (
	VideoCompletionPercent = constant.VideoCompletionPercent

	DefaultAttemptLimit   = constant.DefaultAttemptLimit
	DefaultPassingPercent = constant.DefaultPassingPercent
	DefaultQuestionCount  = constant.DefaultQuestionCount

	ViolationLockThreshold = constant.ViolationLockThreshold

	TabSwitchMediumAt = constant.TabSwitchMediumAt
	TabSwitchHighAt   = constant.TabSwitchHighAt
)
