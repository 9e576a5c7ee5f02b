package constant

// 进度与测验的全局默认值，可被课程/班级/题库配置覆盖
const (
	// 视频完成双信号阈值：观看时长与播放位置都需达到时长的 85%
	VideoCompletionPercent = 85

	DefaultAttemptLimit   = 3
	DefaultPassingPercent = 70
	DefaultQuestionCount  = 10

	// 单次作答内安全违规即时锁定阈值
	ViolationLockThreshold = 3

	// 违规严重度分级的切换点（标签页切换次数）
	TabSwitchMediumAt = 3
	TabSwitchHighAt   = 5
)
