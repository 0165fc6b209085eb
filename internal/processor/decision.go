package processor

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-recruiter-go/internal/config"
	"ai-recruiter-go/internal/constants"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/tracing"
	"ai-recruiter-go/internal/types"
	"ai-recruiter-go/pkg/utils"
)

// DecisionEngine 圈选候选人并派发录用/拒信通知
type DecisionEngine struct {
	jobs     JobStore
	results  ResultStore
	notifier Notifier
	links    config.LinksConfig
}

// NewDecisionEngine 创建决策引擎
func NewDecisionEngine(jobs JobStore, results ResultStore, notifier Notifier, links config.LinksConfig) *DecisionEngine {
	return &DecisionEngine{
		jobs:     jobs,
		results:  results,
		notifier: notifier,
		links:    links,
	}
}

// DispatchDecisions 对岗位下的全部投递派发通知
// selectedIDs非空时按给定ID圈选，否则自动取分数不低于60的前N名（N=岗位空缺数）
// 邮箱不可投递的投递静默跳过；发送失败只跳过状态更新，不计入统计
func (d *DecisionEngine) DispatchDecisions(ctx context.Context, jobID string, selectedIDs []string) (*types.DispatchSummary, error) {
	ctx, span := orchestratorTracer.Start(ctx, "DecisionEngine.DispatchDecisions",
		trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	job, err := d.jobs.GetJobByID(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		tracing.RecordError(span, ErrJobNotFound)
		return nil, ErrJobNotFound
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}

	all, err := d.results.ListResultsByJob(ctx, jobID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("查询筛选结果失败: %w", err)
	}

	selected := make(map[string]bool)
	if len(selectedIDs) > 0 {
		// 人工圈选：给定ID原样生效，不属于本岗位的ID不生效
		chosen, err := d.results.GetResultsByIDs(ctx, jobID, selectedIDs)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, fmt.Errorf("查询圈选投递失败: %w", err)
		}
		for _, r := range chosen {
			selected[r.ApplicationID] = true
		}
	} else {
		// 自动圈选：分数达标者中的前N名
		vacancies := job.Vacancies
		if vacancies <= 0 {
			vacancies = 1
		}
		top, err := d.results.ListTopResults(ctx, jobID, constants.SelectionScoreFloor, vacancies)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, fmt.Errorf("自动圈选失败: %w", err)
		}
		for _, r := range top {
			selected[r.ApplicationID] = true
		}
	}

	summary := &types.DispatchSummary{}
	for i := range all {
		r := &all[i]
		if !utils.IsLikelyEmail(r.CandidateEmail) {
			continue
		}
		if selected[r.ApplicationID] {
			d.dispatchOne(ctx, r, job, true, &summary.SelectedCount)
		} else {
			d.dispatchOne(ctx, r, job, false, &summary.RejectedCount)
		}
	}

	span.SetAttributes(
		attribute.Int("dispatch.selected", summary.SelectedCount),
		attribute.Int("dispatch.rejected", summary.RejectedCount),
	)
	tracing.MarkSuccess(span)

	logger.Info().
		Str("job_id", jobID).
		Int("selected", summary.SelectedCount).
		Int("rejected", summary.RejectedCount).
		Msg("通知派发完成")

	return summary, nil
}

func (d *DecisionEngine) dispatchOne(ctx context.Context, r *models.ScreeningResult, job *models.JobPosting, isSelected bool, counter *int) {
	var msg storage.EmailMessage
	var nextStatus types.ApplicationStatus
	if isSelected {
		msg = d.buildSelectionEmail(r, job)
		nextStatus = types.StatusInterview
	} else {
		msg = d.buildRejectionEmail(r, job)
		nextStatus = types.StatusRejected
	}

	if !d.notifier.Send(ctx, msg) {
		logger.Warn().
			Str("application_id", r.ApplicationID).
			Str("to", r.CandidateEmail).
			Msg("通知发送失败，跳过状态更新")
		return
	}

	*counter++
	if err := d.results.UpdateResultStatus(ctx, r.ApplicationID, string(nextStatus)); err != nil {
		logger.Error().
			Err(err).
			Str("application_id", r.ApplicationID).
			Msg("更新投递状态失败")
	}
}

func (d *DecisionEngine) buildSelectionEmail(r *models.ScreeningResult, job *models.JobPosting) storage.EmailMessage {
	name := r.CandidateName
	if name == "" {
		name = "Candidate"
	}
	body := fmt.Sprintf(`Dear %s,

Congratulations! After reviewing your application for the %s position, we are pleased to invite you to the interview stage.

To help you prepare, we have put together personalized interview guidance based on your profile:
%s/%s

We will contact you shortly with the interview schedule.

Best regards,
The Recruiting Team`,
		name, job.Title, d.links.GuidanceBaseURL, r.ApplicationID)

	return storage.EmailMessage{
		ApplicationID: r.ApplicationID,
		To:            r.CandidateEmail,
		Subject:       fmt.Sprintf("Interview Invitation - %s", job.Title),
		Body:          body,
	}
}

func (d *DecisionEngine) buildRejectionEmail(r *models.ScreeningResult, job *models.JobPosting) storage.EmailMessage {
	name := r.CandidateName
	if name == "" {
		name = "Candidate"
	}
	body := fmt.Sprintf(`Dear %s,

Thank you for applying for the %s position. After careful consideration, we have decided to move forward with other candidates at this time.

We have prepared personalized feedback to support your growth, including suggestions and learning resources:
%s/%s

We encourage you to apply for future openings that match your profile.

Best regards,
The Recruiting Team`,
		name, job.Title, d.links.FeedbackBaseURL, r.ApplicationID)

	return storage.EmailMessage{
		ApplicationID: r.ApplicationID,
		To:            r.CandidateEmail,
		Subject:       fmt.Sprintf("Update on Your Application - %s", job.Title),
		Body:          body,
	}
}
