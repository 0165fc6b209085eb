package constants

// Redis键集中定义，避免各处散落硬编码
const (
	// ScreenedFileMD5SetKey 已筛选简历文件MD5集合，保证同一文件至多入库一次
	ScreenedFileMD5SetKey = "screening:file_md5_set"

	// AdviceCacheKeyFmt 候选人长文档缓存键：advice:{kind}:{application_id}
	AdviceCacheKeyFmt = "advice:%s:%s"

	// AdviceKindGuidance 面试指导
	AdviceKindGuidance = "guidance"
	// AdviceKindFeedback 拒信反馈
	AdviceKindFeedback = "feedback"
)
