package types

import (
	"fmt"
)

// MatchStatus 匹配档位，由LLM按评分规则给出
type MatchStatus string

const (
	MatchStatusStrong MatchStatus = "Strong Match"
	MatchStatusGood   MatchStatus = "Good Match"
	MatchStatusWeak   MatchStatus = "Weak Match"
)

// ApplicationStatus 投递记录的生命周期状态
type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "Applied"
	StatusScreened  ApplicationStatus = "Screened"
	StatusInterview ApplicationStatus = "Interview"
	StatusRejected  ApplicationStatus = "Rejected"
	StatusHired     ApplicationStatus = "Hired"
)

// Valid 判断状态是否属于封闭集合
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusScreened, StatusInterview, StatusRejected, StatusHired:
		return true
	}
	return false
}

// JobStatus 岗位生命周期状态
type JobStatus string

const (
	JobStatusOpen   JobStatus = "Open"
	JobStatusClosed JobStatus = "Closed"
	JobStatusDraft  JobStatus = "Draft"
)

// EmploymentType 用工类型
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "Full-time"
	EmploymentPartTime   EmploymentType = "Part-time"
	EmploymentContract   EmploymentType = "Contract"
	EmploymentInternship EmploymentType = "Internship"
)

// MissingSkills 缺失技能清单，按重要程度分组
type MissingSkills struct {
	Critical []string `json:"critical"`
	Optional []string `json:"optional"`
}

// LearningPlanItem 学习计划条目（周/月粒度由LLM根据差距大小决定）
type LearningPlanItem struct {
	Duration string `json:"duration"`
	Focus    string `json:"focus"`
	Action   string `json:"action"`
}

// ResumeAnalysis LLM对单份简历相对于JD的结构化评估结果
// 一经写入即不可变（同一份文件不会重复评估）
type ResumeAnalysis struct {
	CandidateName      string             `json:"candidateName"`
	CandidateEmail     string             `json:"candidateEmail"`
	MatchScore         int                `json:"matchScore"`
	MatchStatus        MatchStatus        `json:"matchStatus"`
	Summary            string             `json:"summary"`
	MissingSkills      MissingSkills      `json:"missingSkills"`
	ResumeImprovements []string           `json:"resumeImprovements"`
	LearningPlan       []LearningPlanItem `json:"learningPlan"`
}

// Validate 对LLM输出做严格校验，缺少必填字段视为契约违约
func (a *ResumeAnalysis) Validate() error {
	if a.MatchScore < 0 || a.MatchScore > 100 {
		return fmt.Errorf("matchScore 超出范围 [0,100]: %d", a.MatchScore)
	}
	if a.MatchStatus == "" {
		return fmt.Errorf("缺少必填字段 matchStatus")
	}
	if a.Summary == "" {
		return fmt.Errorf("缺少必填字段 summary")
	}
	return nil
}

// ScreeningOutcome 批量筛选中单个文件的处理结果
type ScreeningOutcome struct {
	Status   string          `json:"status"` // success | error
	File     string          `json:"file"`
	ResultID string          `json:"result_id,omitempty"`
	Data     *ResumeAnalysis `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Succeeded 该文件是否处理成功
func (o *ScreeningOutcome) Succeeded() bool {
	return o.Status == "success" && o.Data != nil
}

// ScreeningReport 批量筛选的汇总报告
// 结果按匹配分降序排列，失败条目不参与分数比较
type ScreeningReport struct {
	JobTitle       string             `json:"job_title"`
	TotalProcessed int                `json:"total_processed"`
	Results        []ScreeningOutcome `json:"results"`
}

// DispatchSummary 通知派发的聚合统计
type DispatchSummary struct {
	SelectedCount int `json:"selected_count"`
	RejectedCount int `json:"rejected_count"`
}

// AdviceDocument 面向候选人的长文档（面试指导或拒信反馈）
type AdviceDocument struct {
	Candidate string `json:"candidate"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}
