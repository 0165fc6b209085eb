package processor

import (
	"context"
	"io"
	"time"

	"github.com/cloudwego/eino/schema"

	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/types"
)

// TextGenerator 文本生成接口，由轮询LLM客户端实现
type TextGenerator interface {
	GenerateText(ctx context.Context, messages []*schema.Message, temperature float32) (string, error)
}

// PDFTextExtractor PDF文本提取接口
type PDFTextExtractor interface {
	ExtractTextFromFile(ctx context.Context, path string) (string, error)
}

// ResumeEvaluator 简历评估接口
type ResumeEvaluator interface {
	Analyze(ctx context.Context, resumeText string, job *models.JobPosting) (*types.ResumeAnalysis, error)
}

// JobStore 岗位读取接口
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*models.JobPosting, error)
	ListOpenJobsExcept(ctx context.Context, excludeJobID string, limit int) ([]models.JobPosting, error)
}

// ResultStore 筛选结果存取接口
type ResultStore interface {
	CreateScreeningResult(ctx context.Context, result *models.ScreeningResult) error
	GetScreeningResult(ctx context.Context, applicationID string) (*models.ScreeningResult, error)
	ListResultsByJob(ctx context.Context, jobID string) ([]models.ScreeningResult, error)
	GetResultsByIDs(ctx context.Context, jobID string, ids []string) ([]models.ScreeningResult, error)
	ListTopResults(ctx context.Context, jobID string, scoreFloor, limit int) ([]models.ScreeningResult, error)
	UpdateResultStatus(ctx context.Context, applicationID, status string) error
	SaveAdviceText(ctx context.Context, applicationID, kind, text string) error
	ResumeMD5Seen(ctx context.Context, jobID, md5sum string) (bool, error)
}

// ResumeFileStore 简历原件存储接口
type ResumeFileStore interface {
	UploadResume(ctx context.Context, applicationID, fileExt string, reader io.Reader, fileSize int64, contentType string) (string, error)
}

// DedupStore 简历文件去重接口
type DedupStore interface {
	MarkResumeSeen(ctx context.Context, jobID, md5sum string) (bool, error)
}

// AdviceCache 候选人长文档缓存接口
type AdviceCache interface {
	GetAdviceDocument(ctx context.Context, kind, applicationID string) (*types.AdviceDocument, error)
	SetAdviceDocument(ctx context.Context, kind, applicationID string, doc *types.AdviceDocument, ttl time.Duration) error
}

// Notifier 通知发送接口，返回是否发送成功
// 发送失败不阻断流程，调用方只跳过后续的状态更新
type Notifier interface {
	Send(ctx context.Context, msg storage.EmailMessage) bool
}
