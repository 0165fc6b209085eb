package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"ai-recruiter-go/internal/config"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/processor"
	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/types"
)

// ScreeningHandler 筛选流程的HTTP入口
type ScreeningHandler struct {
	cfg          *config.Config
	storage      *storage.Storage
	orchestrator *processor.Orchestrator
	decisions    *processor.DecisionEngine
	advisor      *processor.Advisor
}

// NewScreeningHandler 创建筛选处理器
func NewScreeningHandler(cfg *config.Config, st *storage.Storage, orchestrator *processor.Orchestrator, decisions *processor.DecisionEngine, advisor *processor.Advisor) *ScreeningHandler {
	return &ScreeningHandler{
		cfg:          cfg,
		storage:      st,
		orchestrator: orchestrator,
		decisions:    decisions,
		advisor:      advisor,
	}
}

// saveTempFile 将上传文件落盘到临时目录，后续处理完成后由编排器删除
func (h *ScreeningHandler) saveTempFile(fileHeader *multipart.FileHeader) (processor.UploadedFile, error) {
	uploadDir := h.cfg.Screening.UploadDir
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return processor.UploadedFile{}, err
	}

	tempPath := filepath.Join(uploadDir, uuid.NewString()+filepath.Ext(fileHeader.Filename))

	src, err := fileHeader.Open()
	if err != nil {
		return processor.UploadedFile{}, err
	}
	defer src.Close()

	dst, err := os.Create(tempPath)
	if err != nil {
		return processor.UploadedFile{}, err
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		_ = os.Remove(tempPath)
		return processor.UploadedFile{}, err
	}

	return processor.UploadedFile{
		Path:        tempPath,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
	}, nil
}

// writeDomainError 将流程错误映射为HTTP状态码
func writeDomainError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, processor.ErrJobNotFound), errors.Is(err, processor.ErrResultNotFound):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
	case errors.Is(err, processor.ErrNoFilesSupplied), errors.Is(err, processor.ErrInvalidFileFormat):
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
	default:
		logger.Error().Err(err).Msg("请求处理失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
	}
}

// AnalyzeResume 简历对照自由文本岗位描述的即席评估，不落库
// POST /api/v1/screening/analyze  (multipart: resume, job_description, 可选 job_title)
func (h *ScreeningHandler) AnalyzeResume(c context.Context, ctx *app.RequestContext) {
	jobDescription := ctx.PostForm("job_description")
	if jobDescription == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少 job_description"})
		return
	}

	fileHeader, err := ctx.FormFile("resume")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}

	file, err := h.saveTempFile(fileHeader)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "保存上传文件失败"})
		return
	}

	analysis, err := h.orchestrator.AnalyzeOnly(c, ctx.PostForm("job_title"), jobDescription, file)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, analysis)
}

// BulkScreen 批量筛选
// POST /api/v1/screening/:job_id/bulk-screen  (multipart: resumes[])
func (h *ScreeningHandler) BulkScreen(c context.Context, ctx *app.RequestContext) {
	jobID := ctx.Param("job_id")

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "解析multipart表单失败"})
		return
	}

	fileHeaders := form.File["resumes"]
	files := make([]processor.UploadedFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := h.saveTempFile(fh)
		if err != nil {
			logger.Warn().Err(err).Str("file", fh.Filename).Msg("保存上传文件失败")
			continue
		}
		files = append(files, f)
	}

	report, err := h.orchestrator.BulkScreen(c, jobID, files)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, report)
}

// applicationView 投递列表的响应条目
type applicationView struct {
	ApplicationID  string                `json:"application_id"`
	CandidateName  string                `json:"candidate_name"`
	CandidateEmail string                `json:"candidate_email"`
	ResumeFilename string                `json:"resume_filename"`
	MatchScore     int                   `json:"match_score"`
	Status         string                `json:"status"`
	Analysis       *types.ResumeAnalysis `json:"analysis,omitempty"`
}

// ListApplications 查看岗位下的全部筛选结果
// GET /api/v1/screening/:job_id/applications
func (h *ScreeningHandler) ListApplications(c context.Context, ctx *app.RequestContext) {
	jobID := ctx.Param("job_id")

	if _, err := h.storage.MySQL.GetJobByID(c, jobID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeDomainError(ctx, processor.ErrJobNotFound)
		} else {
			writeDomainError(ctx, err)
		}
		return
	}

	results, err := h.storage.MySQL.ListResultsByJob(c, jobID)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	views := make([]applicationView, 0, len(results))
	for i := range results {
		r := &results[i]
		view := applicationView{
			ApplicationID:  r.ApplicationID,
			CandidateName:  r.CandidateName,
			CandidateEmail: r.CandidateEmail,
			ResumeFilename: r.ResumeFilename,
			MatchScore:     r.MatchScore,
			Status:         r.Status,
		}
		if len(r.AIAnalysis) > 0 {
			var analysis types.ResumeAnalysis
			if err := json.Unmarshal(r.AIAnalysis, &analysis); err == nil {
				view.Analysis = &analysis
			}
		}
		views = append(views, view)
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"job_id":       jobID,
		"total":        len(views),
		"applications": views,
	})
}

// sendEmailsRequest 通知派发请求体
type sendEmailsRequest struct {
	SelectedIDs []string `json:"selected_ids"`
}

// SendEmails 派发录用/拒信通知
// POST /api/v1/screening/:job_id/send-emails
func (h *ScreeningHandler) SendEmails(c context.Context, ctx *app.RequestContext) {
	jobID := ctx.Param("job_id")

	var req sendEmailsRequest
	if len(ctx.Request.Body()) > 0 {
		if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法JSON"})
			return
		}
	}

	summary, err := h.decisions.DispatchDecisions(c, jobID, req.SelectedIDs)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, summary)
}

// Guidance 候选人获取面试指导（公开接口）
// GET /api/v1/screening/guidance/:application_id
func (h *ScreeningHandler) Guidance(c context.Context, ctx *app.RequestContext) {
	doc, err := h.advisor.Guidance(c, ctx.Param("application_id"))
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, doc)
}

// Feedback 候选人获取拒信反馈（公开接口）
// GET /api/v1/screening/feedback/:application_id
func (h *ScreeningHandler) Feedback(c context.Context, ctx *app.RequestContext) {
	doc, err := h.advisor.Feedback(c, ctx.Param("application_id"))
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, doc)
}

// ResumeLink 生成简历原件的限时下载链接
// GET /api/v1/screening/resume/:application_id
func (h *ScreeningHandler) ResumeLink(c context.Context, ctx *app.RequestContext) {
	applicationID := ctx.Param("application_id")

	result, err := h.storage.MySQL.GetScreeningResult(c, applicationID)
	if errors.Is(err, storage.ErrNotFound) {
		writeDomainError(ctx, processor.ErrResultNotFound)
		return
	}
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	if result.ResumePath == "" {
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "该投递未留存简历原件"})
		return
	}
	if h.storage.MinIO == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "对象存储不可用"})
		return
	}

	expiry := config.GetDuration(h.cfg.MinIO.PresignExpiry, 0)
	url, err := h.storage.MinIO.PresignResumeURL(c, result.ResumePath, expiry)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"application_id": applicationID,
		"url":            url,
	})
}
