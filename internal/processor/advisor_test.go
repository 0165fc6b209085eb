package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-recruiter-go/internal/agent"
	"ai-recruiter-go/internal/constants"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/types"
	"gorm.io/datatypes"
)

func advisorFixtures() (*fakeJobStore, *fakeResultStore) {
	jobs := singleJobStore()
	jobs.market = []models.JobPosting{
		{JobID: "job-2", Title: "Platform Engineer", ExperienceLevel: "mid", Status: "Open"},
	}

	results := newFakeResultStore()
	results.add(&models.ScreeningResult{
		ApplicationID:  "app-1",
		JobID:          "job-1",
		CandidateName:  "Jordan Lee",
		CandidateEmail: "jordan@example.com",
		MatchScore:     72,
		AIAnalysis:     datatypes.JSON([]byte(validAnalysisJSON)),
		Status:         string(types.StatusScreened),
	})
	return jobs, results
}

func TestGuidanceGeneratesAndCaches(t *testing.T) {
	jobs, results := advisorFixtures()
	mock := &agent.MockTextGenerator{Responses: []string{"Prepare for system design questions."}}
	cache := newFakeAdviceCache()

	advisor := NewAdvisor(mock, results, jobs, cache, time.Hour)

	doc, err := advisor.Guidance(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Jordan Lee", doc.Candidate)
	assert.Equal(t, "Backend Engineer", doc.Role)
	assert.Equal(t, "Prepare for system design questions.", doc.Content)
	// 建议类文档使用较高温度
	assert.InDelta(t, 0.3, float64(mock.LastTemperature), 0.001)

	// 第二次调用走缓存，不再触发LLM
	doc2, err := advisor.Guidance(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Content, doc2.Content)
	assert.Equal(t, 1, mock.CallCount)
}

func TestGuidancePromptListsTopJobSkills(t *testing.T) {
	jobs, results := advisorFixtures()
	jobs.jobs["job-1"].RequiredSkillsJSON = datatypes.JSON([]byte(`["Go","MySQL","Redis","Kafka"]`))
	mock := &agent.MockTextGenerator{Responses: []string{"Study the fundamentals."}}

	advisor := NewAdvisor(mock, results, jobs, newFakeAdviceCache(), time.Hour)

	_, err := advisor.Guidance(context.Background(), "app-1")
	require.NoError(t, err)

	// 备考主题只取岗位技能表的前三项
	require.Len(t, mock.LastMessages, 2)
	assert.Contains(t, mock.LastMessages[1].Content, "Core topics to study: Go, MySQL, Redis")
	assert.NotContains(t, mock.LastMessages[1].Content, "Kafka")
}

func TestGuidanceFallbackIsCached(t *testing.T) {
	jobs, results := advisorFixtures()
	mock := &agent.MockTextGenerator{Err: agent.ErrKeysExhausted}
	cache := newFakeAdviceCache()

	advisor := NewAdvisor(mock, results, jobs, cache, time.Hour)

	doc, err := advisor.Guidance(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, constants.GuidanceFallbackText, doc.Content)

	// 兜底文案同样被缓存
	cached, err := cache.GetAdviceDocument(context.Background(), constants.AdviceKindGuidance, "app-1")
	require.NoError(t, err)
	assert.Equal(t, constants.GuidanceFallbackText, cached.Content)
}

func TestFeedbackMentionsOtherOpenRoles(t *testing.T) {
	jobs, results := advisorFixtures()
	mock := &agent.MockTextGenerator{Responses: []string{"Consider strengthening Kubernetes skills."}}

	advisor := NewAdvisor(mock, results, jobs, newFakeAdviceCache(), time.Hour)

	doc, err := advisor.Feedback(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Consider strengthening Kubernetes skills.", doc.Content)

	// 提示词包含其他在招岗位
	require.Len(t, mock.LastMessages, 2)
	assert.Contains(t, mock.LastMessages[1].Content, "Platform Engineer")
}

func TestAdvisorPersistsWithoutCache(t *testing.T) {
	jobs, results := advisorFixtures()
	mock := &agent.MockTextGenerator{Responses: []string{"Guide content."}}

	advisor := NewAdvisor(mock, results, jobs, nil, 0)

	doc, err := advisor.Guidance(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Guide content.", doc.Content)

	// Redis不可用时数据库正文仍保证只生成一次
	doc2, err := advisor.Guidance(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Content, doc2.Content)
	assert.Equal(t, 1, mock.CallCount)
}

func TestAdvisorReturnsStoredColumnWithoutGenerating(t *testing.T) {
	jobs, results := advisorFixtures()
	stored, err := results.GetScreeningResult(context.Background(), "app-1")
	require.NoError(t, err)
	stored.RejectionFeedback = "Previously generated feedback."

	mock := &agent.MockTextGenerator{Responses: []string{"should not be used"}}
	advisor := NewAdvisor(mock, results, jobs, nil, 0)

	doc, err := advisor.Feedback(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "Previously generated feedback.", doc.Content)
	assert.Equal(t, 0, mock.CallCount)
}

func TestAdvisorResultNotFound(t *testing.T) {
	jobs, results := advisorFixtures()
	advisor := NewAdvisor(&agent.MockTextGenerator{}, results, jobs, nil, 0)

	_, err := advisor.Guidance(context.Background(), "missing-app")
	assert.ErrorIs(t, err, ErrResultNotFound)
}
