package constants

// 批量筛选相关常量
const (
	// ScreeningChunkSize 批量筛选的分片大小：每批并发处理的文件数
	ScreeningChunkSize = 5

	// MaxBulkScreenFiles 单次批量筛选允许的最大文件数
	MaxBulkScreenFiles = 100

	// PromptCharLimit 拼入提示词的简历/JD文本截断长度
	PromptCharLimit = 5000

	// SelectionScoreFloor 自动圈选的最低匹配分
	SelectionScoreFloor = 60
)

// LLM调用温度
const (
	AnalysisTemperature = 0.1
	AdviceTemperature   = 0.3
)

// 生成失败时写入缓存的兜底文案
const (
	GuidanceFallbackText = "Guidance generation currently unavailable. Please check back later."
	FeedbackFallbackText = "Feedback generation currently unavailable."
)

// FeedbackMarketJobLimit 拒信反馈中引用的其他在招岗位上限
const FeedbackMarketJobLimit = 5

// GuidanceStudyTopicLimit 面试指导提示词中列出的岗位技能主题数
const GuidanceStudyTopicLimit = 3

// DefaultRecruitmentPhases 新建岗位未指定时的默认招聘阶段
var DefaultRecruitmentPhases = []string{"Screening", "Technical Interview", "HR Interview", "Offer"}
