package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"ai-recruiter-go/internal/agent"
	"ai-recruiter-go/internal/constants"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/types"
	"ai-recruiter-go/pkg/utils"
)

// ResumeAnalyzer 调用LLM对单份简历做结构化评估
type ResumeAnalyzer struct {
	llm TextGenerator
}

var _ ResumeEvaluator = (*ResumeAnalyzer)(nil)

// NewResumeAnalyzer 创建简历评估器
func NewResumeAnalyzer(llm TextGenerator) *ResumeAnalyzer {
	return &ResumeAnalyzer{llm: llm}
}

// skillCoverageThreshold 不同经验等级要求的技能覆盖率
func skillCoverageThreshold(experienceLevel string) int {
	switch strings.ToLower(experienceLevel) {
	case "entry":
		return 50
	case "mid", "senior":
		return 80
	default:
		// 未知等级按最严格口径
		return 90
	}
}

const analysisSystemPrompt = `You are an expert AI recruitment assistant. Evaluate the candidate's resume against the job description and respond with a single JSON object only. Do not wrap the JSON in markdown fences and do not add any commentary.

Scoring rubric for "matchScore" (0-100):
- 0-40: the candidate is missing most of the critical requirements.
- 41-70: the candidate meets some requirements but has notable gaps.
- 71-100: the candidate meets or exceeds most requirements.

Rules:
- The candidate should cover at least %d%% of the required skills to be considered a match for this %s-level role.
- "matchStatus" must be one of "Strong Match", "Good Match", "Weak Match".
- Only judge against requirements explicitly present in the job description. Do not penalize or reward experience or education the job text never asks for.
- "summary" must use gender-neutral language: refer to "the candidate", never "he" or "she".
- "candidateEmail" must be the email address found in the resume, or "Not Found" if absent.
- If the skill gaps are small, "learningPlan" must be a 4-week plan with one item per week; if the gaps are large, use a multi-month plan instead.
- "missingSkills.critical" lists required skills the resume does not show; "missingSkills.optional" lists nice-to-have gaps.

The JSON object must have exactly these fields:
{
  "candidateName": string,
  "candidateEmail": string,
  "matchScore": number,
  "matchStatus": string,
  "summary": string,
  "missingSkills": {"critical": [string], "optional": [string]},
  "resumeImprovements": [string],
  "learningPlan": [{"duration": string, "focus": string, "action": string}]
}`

// buildAnalysisMessages 拼装评估提示词，简历和JD文本均做截断
func buildAnalysisMessages(resumeText string, job *models.JobPosting) []*schema.Message {
	var requiredSkills []string
	if len(job.RequiredSkillsJSON) > 0 {
		_ = json.Unmarshal(job.RequiredSkillsJSON, &requiredSkills)
	}

	level := job.ExperienceLevel
	if level == "" {
		level = "senior"
	}

	system := fmt.Sprintf(analysisSystemPrompt, skillCoverageThreshold(job.ExperienceLevel), level)

	jd := job.Description
	if job.Requirements != "" {
		jd += "\n\nRequirements:\n" + job.Requirements
	}

	user := fmt.Sprintf(`Job Title: %s
Required Skills: %s
Experience Level: %s

Job Description:
%s

Candidate Resume:
%s`,
		job.Title,
		strings.Join(requiredSkills, ", "),
		level,
		utils.TruncateRunes(jd, constants.PromptCharLimit),
		utils.TruncateRunes(resumeText, constants.PromptCharLimit),
	)

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
}

// Analyze 评估简历与岗位的匹配度
// LLM返回非法JSON时立即失败，不做重试
func (a *ResumeAnalyzer) Analyze(ctx context.Context, resumeText string, job *models.JobPosting) (*types.ResumeAnalysis, error) {
	messages := buildAnalysisMessages(resumeText, job)

	raw, err := a.llm.GenerateText(ctx, messages, constants.AnalysisTemperature)
	if err != nil {
		return nil, fmt.Errorf("LLM评估调用失败: %w", err)
	}

	cleaned := agent.StripCodeFences(raw)

	var analysis types.ResumeAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		logger.Warn().
			Err(err).
			Str("job_id", job.JobID).
			Msg("LLM评估结果不是合法JSON")
		return nil, fmt.Errorf("%w: %v", agent.ErrMalformedResponse, err)
	}

	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrMalformedResponse, err)
	}

	return &analysis, nil
}
