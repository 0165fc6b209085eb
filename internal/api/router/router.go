package router

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"ai-recruiter-go/internal/api/handler"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/storage"
)

// newRecruiterAuth 基于API密钥的招聘方鉴权中间件
// 密钥对应recruiters表的激活账号，命中后将招聘方ID注入请求上下文
func newRecruiterAuth(st *storage.Storage) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			recruiter, err := st.MySQL.GetRecruiterByAPIKey(ctx, key)
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				logger.Error().Err(err).Msg("招聘方鉴权查询失败")
				return false, err
			}
			c.Set("recruiter_id", recruiter.RecruiterID)
			return true, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "无效的API密钥"})
		}),
	)
}

// RegisterRoutes 注册API路由
// 招聘方接口走密钥鉴权；候选人侧的指导/反馈接口公开
func RegisterRoutes(h *server.Hertz, st *storage.Storage, screeningHandler *handler.ScreeningHandler, jobHandler *handler.JobHandler) {
	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// 候选人侧公开接口
	api.GET("/screening/guidance/:application_id", screeningHandler.Guidance)
	api.GET("/screening/feedback/:application_id", screeningHandler.Feedback)

	// 招聘方接口
	recruiter := api.Group("", newRecruiterAuth(st))

	recruiter.POST("/jobs", jobHandler.CreateJob)
	recruiter.GET("/jobs", jobHandler.ListJobs)
	recruiter.GET("/jobs/:job_id", jobHandler.GetJob)

	recruiter.POST("/screening/analyze", screeningHandler.AnalyzeResume)
	recruiter.POST("/screening/:job_id/bulk-screen", screeningHandler.BulkScreen)
	recruiter.GET("/screening/:job_id/applications", screeningHandler.ListApplications)
	recruiter.POST("/screening/:job_id/send-emails", screeningHandler.SendEmails)
	recruiter.GET("/screening/resume/:application_id", screeningHandler.ResumeLink)
}
