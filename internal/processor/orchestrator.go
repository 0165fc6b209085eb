package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"ai-recruiter-go/internal/constants"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/tracing"
	"ai-recruiter-go/internal/types"
	"ai-recruiter-go/pkg/utils"
)

var orchestratorTracer = otel.Tracer("ai-recruiter-go/processor/orchestrator")

// UploadedFile 待筛选的简历文件（已落盘的临时文件）
type UploadedFile struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// Orchestrator 批量筛选编排器
// 分片串行、片内并发：每批最多chunkSize个文件同时处理，
// 单个文件失败只标记该文件，不影响同批其他文件
type Orchestrator struct {
	extractor PDFTextExtractor
	evaluator ResumeEvaluator
	jobs      JobStore
	results   ResultStore
	files     ResumeFileStore // 可为nil，降级为不留存原件
	dedup     DedupStore      // 可为nil，降级为用数据库去重
	chunkSize int
	maxFiles  int
}

// NewOrchestrator 创建批量筛选编排器
func NewOrchestrator(extractor PDFTextExtractor, evaluator ResumeEvaluator, jobs JobStore, results ResultStore, files ResumeFileStore, dedup DedupStore, chunkSize, maxFiles int) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = constants.ScreeningChunkSize
	}
	if maxFiles <= 0 {
		maxFiles = constants.MaxBulkScreenFiles
	}
	return &Orchestrator{
		extractor: extractor,
		evaluator: evaluator,
		jobs:      jobs,
		results:   results,
		files:     files,
		dedup:     dedup,
		chunkSize: chunkSize,
		maxFiles:  maxFiles,
	}
}

// AnalyzeOnly 对单份简历做即席评估，岗位描述为自由文本，不落库
// 临时文件无论成败都会删除
func (o *Orchestrator) AnalyzeOnly(ctx context.Context, jobTitle, jobDescription string, file UploadedFile) (*types.ResumeAnalysis, error) {
	defer func() {
		if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", file.Path).Msg("删除临时文件失败")
		}
	}()

	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		return nil, NewFormatError(file.Filename, "仅支持PDF")
	}

	text, err := o.extractor.ExtractTextFromFile(ctx, file.Path)
	if err != nil {
		return nil, NewExtractError(file.Filename, err.Error())
	}

	if jobTitle == "" {
		jobTitle = "Target Role"
	}
	job := &models.JobPosting{Title: jobTitle, Description: jobDescription}
	return o.evaluator.Analyze(ctx, text, job)
}

// BulkScreen 批量筛选岗位下的一组简历
// 返回的报告按匹配分降序排列，失败条目保持原相对位置
func (o *Orchestrator) BulkScreen(ctx context.Context, jobID string, files []UploadedFile) (*types.ScreeningReport, error) {
	ctx, span := orchestratorTracer.Start(ctx, "Orchestrator.BulkScreen",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.Int("files.count", len(files)),
		))
	defer span.End()

	if len(files) == 0 {
		tracing.RecordError(span, ErrNoFilesSupplied)
		return nil, ErrNoFilesSupplied
	}
	if len(files) > o.maxFiles {
		err := fmt.Errorf("单次最多处理 %d 个文件，收到 %d 个", o.maxFiles, len(files))
		tracing.RecordError(span, err)
		return nil, err
	}

	job, err := o.lookupJob(ctx, jobID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	outcomes := make([]types.ScreeningOutcome, len(files))

	// 分片串行处理，片内并发，全部收集后统一汇总
	for start := 0; start < len(files); start += o.chunkSize {
		end := start + o.chunkSize
		if end > len(files) {
			end = len(files)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				outcomes[idx] = o.processFile(ctx, job, files[idx])
			}(i)
		}
		wg.Wait()
	}

	sortOutcomes(outcomes)

	var succeeded int
	for i := range outcomes {
		if outcomes[i].Succeeded() {
			succeeded++
		}
	}
	span.SetAttributes(attribute.Int("files.succeeded", succeeded))
	tracing.MarkSuccess(span)

	logger.Info().
		Str("job_id", jobID).
		Int("total", len(files)).
		Int("succeeded", succeeded).
		Msg("批量筛选完成")

	return &types.ScreeningReport{
		JobTitle:       job.Title,
		TotalProcessed: len(files),
		Results:        outcomes,
	}, nil
}

func (o *Orchestrator) lookupJob(ctx context.Context, jobID string) (*models.JobPosting, error) {
	job, err := o.jobs.GetJobByID(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}
	return job, nil
}

// processFile 处理单个简历文件，临时文件无论成败都会删除
func (o *Orchestrator) processFile(ctx context.Context, job *models.JobPosting, file UploadedFile) types.ScreeningOutcome {
	defer func() {
		if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", file.Path).Msg("删除临时文件失败")
		}
	}()

	fail := func(err error) types.ScreeningOutcome {
		logger.Warn().
			Err(err).
			Str("job_id", job.JobID).
			Str("file", file.Filename).
			Msg("简历处理失败")
		return types.ScreeningOutcome{
			Status: "error",
			File:   file.Filename,
			Error:  err.Error(),
		}
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return fail(NewFormatError(file.Filename, "仅支持PDF"))
	}

	md5sum, err := utils.CalculateFileMD5(file.Path)
	if err != nil {
		return fail(NewExtractError(file.Filename, err.Error()))
	}

	firstSeen, err := o.checkFirstSeen(ctx, job.JobID, md5sum)
	if err != nil {
		// 去重设施故障不阻断筛选
		logger.Warn().Err(err).Str("file", file.Filename).Msg("去重检查失败，按首次处理")
		firstSeen = true
	}
	if !firstSeen {
		return fail(NewFormatError(file.Filename, "重复文件，已筛选过"))
	}

	text, err := o.extractor.ExtractTextFromFile(ctx, file.Path)
	if err != nil {
		return fail(NewExtractError(file.Filename, err.Error()))
	}

	analysis, err := o.evaluator.Analyze(ctx, text, job)
	if err != nil {
		return fail(NewAnalysisError(file.Filename, err.Error()))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fail(NewPersistError(file.Filename, err.Error()))
	}
	applicationID := id.String()

	resumePath := o.archiveResume(ctx, applicationID, ext, file)

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fail(NewPersistError(file.Filename, err.Error()))
	}

	result := &models.ScreeningResult{
		ApplicationID:  applicationID,
		JobID:          job.JobID,
		CandidateName:  analysis.CandidateName,
		CandidateEmail: analysis.CandidateEmail,
		ResumeFilename: file.Filename,
		ResumePath:     resumePath,
		ResumeMD5:      md5sum,
		MatchScore:     analysis.MatchScore,
		AIAnalysis:     datatypes.JSON(analysisJSON),
		Status:         string(types.StatusScreened),
	}
	if err := o.results.CreateScreeningResult(ctx, result); err != nil {
		return fail(NewPersistError(file.Filename, err.Error()))
	}

	return types.ScreeningOutcome{
		Status:   "success",
		File:     file.Filename,
		ResultID: applicationID,
		Data:     analysis,
	}
}

// checkFirstSeen Redis优先，不可用时退回数据库查重
func (o *Orchestrator) checkFirstSeen(ctx context.Context, jobID, md5sum string) (bool, error) {
	if o.dedup != nil {
		return o.dedup.MarkResumeSeen(ctx, jobID, md5sum)
	}
	seen, err := o.results.ResumeMD5Seen(ctx, jobID, md5sum)
	if err != nil {
		return false, err
	}
	return !seen, nil
}

// archiveResume 将简历原件归档到对象存储，失败只记日志
func (o *Orchestrator) archiveResume(ctx context.Context, applicationID, ext string, file UploadedFile) string {
	if o.files == nil {
		return ""
	}
	f, err := os.Open(file.Path)
	if err != nil {
		logger.Warn().Err(err).Str("file", file.Filename).Msg("归档简历时打开文件失败")
		return ""
	}
	defer f.Close()

	objectName, err := o.files.UploadResume(ctx, applicationID, ext, f, file.Size, file.ContentType)
	if err != nil {
		logger.Warn().Err(err).Str("file", file.Filename).Msg("归档简历到对象存储失败")
		return ""
	}
	return objectName
}

// sortOutcomes 按匹配分稳定降序，失败条目不参与分数比较、保持原相对位置
func sortOutcomes(outcomes []types.ScreeningOutcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].Data == nil || outcomes[j].Data == nil {
			return false
		}
		return outcomes[i].Data.MatchScore > outcomes[j].Data.MatchScore
	})
}
