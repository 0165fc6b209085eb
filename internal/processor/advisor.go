package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"ai-recruiter-go/internal/constants"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/types"
)

// Advisor 面向候选人生成长文档：面试指导与拒信反馈
// 缓存优先；生成失败时写入兜底文案，避免候选人端反复触发LLM调用
type Advisor struct {
	llm      TextGenerator
	results  ResultStore
	jobs     JobStore
	cache    AdviceCache // 可为nil，降级为每次生成
	cacheTTL time.Duration
}

// NewAdvisor 创建长文档生成器
func NewAdvisor(llm TextGenerator, results ResultStore, jobs JobStore, cache AdviceCache, cacheTTL time.Duration) *Advisor {
	return &Advisor{
		llm:      llm,
		results:  results,
		jobs:     jobs,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Guidance 生成（或返回缓存的）面试指导
func (a *Advisor) Guidance(ctx context.Context, applicationID string) (*types.AdviceDocument, error) {
	return a.advise(ctx, constants.AdviceKindGuidance, applicationID)
}

// Feedback 生成（或返回缓存的）拒信反馈
func (a *Advisor) Feedback(ctx context.Context, applicationID string) (*types.AdviceDocument, error) {
	return a.advise(ctx, constants.AdviceKindFeedback, applicationID)
}

func (a *Advisor) advise(ctx context.Context, kind, applicationID string) (*types.AdviceDocument, error) {
	if a.cache != nil {
		doc, err := a.cache.GetAdviceDocument(ctx, kind, applicationID)
		if err == nil {
			logger.Debug().
				Str("kind", kind).
				Str("application_id", applicationID).
				Msg("长文档缓存命中")
			return doc, nil
		}
		if !errors.Is(err, storage.ErrCacheMiss) {
			logger.Warn().Err(err).Str("application_id", applicationID).Msg("读取长文档缓存失败")
		}
	}

	result, err := a.results.GetScreeningResult(ctx, applicationID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询筛选结果失败: %w", err)
	}

	job, err := a.jobs.GetJobByID(ctx, result.JobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}

	// 落库的正文即永久留存，命中后只回填缓存不再生成
	if stored := storedAdvice(result, kind); stored != "" {
		doc := &types.AdviceDocument{
			Candidate: result.CandidateName,
			Role:      job.Title,
			Content:   stored,
		}
		a.cacheDoc(ctx, kind, applicationID, doc)
		return doc, nil
	}

	var analysis types.ResumeAnalysis
	if len(result.AIAnalysis) > 0 {
		_ = json.Unmarshal(result.AIAnalysis, &analysis)
	}

	var content string
	switch kind {
	case constants.AdviceKindGuidance:
		content = a.generate(ctx, buildGuidancePrompt(result, job, &analysis), constants.GuidanceFallbackText)
	default:
		marketJobs := a.marketJobs(ctx, job.JobID)
		content = a.generate(ctx, buildFeedbackPrompt(result, job, &analysis, marketJobs), constants.FeedbackFallbackText)
	}

	doc := &types.AdviceDocument{
		Candidate: result.CandidateName,
		Role:      job.Title,
		Content:   content,
	}

	// 兜底文案同样落库，避免上游持续故障时反复打到LLM
	if err := a.results.SaveAdviceText(ctx, applicationID, kind, content); err != nil {
		logger.Warn().Err(err).Str("application_id", applicationID).Msg("留存长文档正文失败")
	}
	a.cacheDoc(ctx, kind, applicationID, doc)

	return doc, nil
}

func storedAdvice(result *models.ScreeningResult, kind string) string {
	if kind == constants.AdviceKindGuidance {
		return result.InterviewGuidance
	}
	return result.RejectionFeedback
}

func (a *Advisor) cacheDoc(ctx context.Context, kind, applicationID string, doc *types.AdviceDocument) {
	if a.cache == nil {
		return
	}
	if err := a.cache.SetAdviceDocument(ctx, kind, applicationID, doc, a.cacheTTL); err != nil {
		logger.Warn().Err(err).Str("application_id", applicationID).Msg("写入长文档缓存失败")
	}
}

// generate 调用LLM生成文档，失败时返回兜底文案
func (a *Advisor) generate(ctx context.Context, prompt []*schema.Message, fallback string) string {
	content, err := a.llm.GenerateText(ctx, prompt, constants.AdviceTemperature)
	if err != nil || strings.TrimSpace(content) == "" {
		logger.Warn().Err(err).Msg("长文档生成失败，使用兜底文案")
		return fallback
	}
	return content
}

// marketJobs 拉取其他在招岗位，失败时只记日志
func (a *Advisor) marketJobs(ctx context.Context, excludeJobID string) []models.JobPosting {
	jobs, err := a.jobs.ListOpenJobsExcept(ctx, excludeJobID, constants.FeedbackMarketJobLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("查询其他在招岗位失败")
		return nil
	}
	return jobs
}

// coreStudyTopics 岗位技能表的前几项作为备考主题
func coreStudyTopics(job *models.JobPosting) []string {
	var skills []string
	if len(job.RequiredSkillsJSON) > 0 {
		_ = json.Unmarshal(job.RequiredSkillsJSON, &skills)
	}
	if len(skills) > constants.GuidanceStudyTopicLimit {
		skills = skills[:constants.GuidanceStudyTopicLimit]
	}
	return skills
}

func buildGuidancePrompt(result *models.ScreeningResult, job *models.JobPosting, analysis *types.ResumeAnalysis) []*schema.Message {
	system := `You are a senior career coach. Write a personalized interview preparation guide for the candidate below. Use plain, encouraging language and organize the guide into sections: likely interview topics, questions to expect, how to address known skill gaps, and questions the candidate should ask. Respond with the guide text only.`

	user := fmt.Sprintf(`Candidate: %s
Role: %s
Core topics to study: %s
Match summary: %s
Missing critical skills: %s
Missing optional skills: %s`,
		displayName(result.CandidateName),
		job.Title,
		strings.Join(coreStudyTopics(job), ", "),
		analysis.Summary,
		strings.Join(analysis.MissingSkills.Critical, ", "),
		strings.Join(analysis.MissingSkills.Optional, ", "),
	)

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
}

func buildFeedbackPrompt(result *models.ScreeningResult, job *models.JobPosting, analysis *types.ResumeAnalysis, marketJobs []models.JobPosting) []*schema.Message {
	system := `You are a supportive career advisor. The candidate below was not selected for the role. Write constructive, specific feedback: what was missing, how to improve the resume, a realistic learning plan, and which of the other open roles (if any) could be a better fit. Be kind but concrete. Respond with the feedback text only.`

	var openRoles []string
	for _, j := range marketJobs {
		openRoles = append(openRoles, fmt.Sprintf("%s (%s)", j.Title, j.ExperienceLevel))
	}
	if len(openRoles) == 0 {
		openRoles = []string{"none at the moment"}
	}

	improvements, _ := json.Marshal(analysis.ResumeImprovements)
	plan, _ := json.Marshal(analysis.LearningPlan)

	user := fmt.Sprintf(`Candidate: %s
Role applied for: %s
Match score: %d
Match summary: %s
Missing critical skills: %s
Suggested resume improvements: %s
Draft learning plan: %s
Other open roles: %s`,
		displayName(result.CandidateName),
		job.Title,
		analysis.MatchScore,
		analysis.Summary,
		strings.Join(analysis.MissingSkills.Critical, ", "),
		string(improvements),
		string(plan),
		strings.Join(openRoles, "; "),
	)

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
}

func displayName(name string) string {
	if name == "" {
		return "the candidate"
	}
	return name
}
