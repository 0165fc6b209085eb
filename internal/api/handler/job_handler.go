package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"

	"ai-recruiter-go/internal/constants"
	"ai-recruiter-go/internal/processor"
	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/types"
	pkgutils "ai-recruiter-go/pkg/utils"
)

// JobHandler 岗位管理的HTTP入口
type JobHandler struct {
	storage *storage.Storage
}

// NewJobHandler 创建岗位处理器
func NewJobHandler(st *storage.Storage) *JobHandler {
	return &JobHandler{storage: st}
}

// createJobRequest 新建岗位请求体
type createJobRequest struct {
	Title             string   `json:"title"`
	Department        string   `json:"department"`
	Description       string   `json:"description"`
	Requirements      string   `json:"requirements"`
	RequiredSkills    []string `json:"required_skills"`
	RecruitmentPhases []string `json:"recruitment_phases"`
	ExperienceLevel   string   `json:"experience_level"`
	EmploymentType    string   `json:"employment_type"`
	Location          string   `json:"location"`
	SalaryRange       string   `json:"salary_range"`
	Vacancies         int      `json:"vacancies"`
	Deadline          string   `json:"deadline"` // RFC3339，可选
}

// CreateJob 新建岗位
// POST /api/v1/jobs
func (h *JobHandler) CreateJob(c context.Context, ctx *app.RequestContext) {
	var req createJobRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法JSON"})
		return
	}
	if req.Title == "" || req.Description == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "title 和 description 为必填"})
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "生成岗位ID失败"})
		return
	}

	vacancies := req.Vacancies
	if vacancies <= 0 {
		vacancies = 1
	}
	phases := req.RecruitmentPhases
	if len(phases) == 0 {
		phases = constants.DefaultRecruitmentPhases
	}

	job := &models.JobPosting{
		JobID:                 id.String(),
		Title:                 req.Title,
		Department:            req.Department,
		Description:           req.Description,
		Requirements:          req.Requirements,
		RequiredSkillsJSON:    pkgutils.ConvertArrayToJSON(req.RequiredSkills),
		RecruitmentPhasesJSON: pkgutils.ConvertArrayToJSON(phases),
		ExperienceLevel:       req.ExperienceLevel,
		EmploymentType:        req.EmploymentType,
		Location:              req.Location,
		SalaryRange:           req.SalaryRange,
		Vacancies:             vacancies,
		Status:                string(types.JobStatusOpen),
	}
	if req.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "deadline 需为 RFC3339 格式"})
			return
		}
		job.Deadline = &deadline
	}

	// 鉴权中间件注入的招聘方身份
	if rid := recruiterIDFrom(ctx); rid != "" {
		job.RecruiterID = &rid
	}

	if err := h.storage.MySQL.CreateJob(c, job); err != nil {
		writeDomainError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusCreated, job)
}

// ListJobs 列出当前招聘方名下的岗位
// GET /api/v1/jobs?status=Open
func (h *JobHandler) ListJobs(c context.Context, ctx *app.RequestContext) {
	jobs, err := h.storage.MySQL.ListJobs(c, recruiterIDFrom(ctx), ctx.Query("status"))
	if err != nil {
		writeDomainError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"total": len(jobs),
		"jobs":  jobs,
	})
}

// GetJob 查看单个岗位，仅限岗位归属的招聘方
// GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c context.Context, ctx *app.RequestContext) {
	job, err := h.storage.MySQL.GetJobByID(c, ctx.Param("job_id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeDomainError(ctx, processor.ErrJobNotFound)
		return
	}
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	if job.RecruiterID != nil && *job.RecruiterID != recruiterIDFrom(ctx) {
		ctx.JSON(consts.StatusForbidden, utils.H{"error": "无权访问该岗位"})
		return
	}
	ctx.JSON(consts.StatusOK, job)
}

// recruiterIDFrom 取出鉴权中间件注入的招聘方身份
func recruiterIDFrom(ctx *app.RequestContext) string {
	if v, ok := ctx.Get("recruiter_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
