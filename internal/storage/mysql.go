package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ai-recruiter-go/internal/config"
	"ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/storage/models"
)

var mysqlTracer = otel.Tracer("ai-recruiter-go/storage/mysql")

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

type spanContextKey struct{}

// GormTracingPlugin GORM插件，为数据库操作生成OpenTelemetry追踪点
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer: mysqlTracer,
		dbName: dbName,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after())
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, spanContextKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(spanContextKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// 未命中属于正常业务分支，不计为错误
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// MySQL 关系数据库适配器
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并完成结构迁移
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	gormConfig := &gorm.Config{
		Logger:      gormlogger.Default.LogMode(gormlogger.Warn),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	logger.Info().Str("database", cfg.Database).Msg("MySQL连接就绪")
	return m, nil
}

func (m *MySQL) autoMigrateSchema() error {
	// 迁移期间关闭SQL日志
	silentDB := m.db.Session(&gorm.Session{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	return silentDB.AutoMigrate(
		&models.Recruiter{},
		&models.JobPosting{},
		&models.ScreeningResult{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// --- 招聘方 ---

// GetRecruiterByAPIKey 按API密钥查找激活状态的招聘方，用于接口鉴权
func (m *MySQL) GetRecruiterByAPIKey(ctx context.Context, apiKey string) (*models.Recruiter, error) {
	var r models.Recruiter
	err := m.db.WithContext(ctx).
		Where("api_key = ? AND is_active = ?", apiKey, true).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// --- 岗位 ---

// CreateJob 新建岗位
func (m *MySQL) CreateJob(ctx context.Context, job *models.JobPosting) error {
	return m.db.WithContext(ctx).Create(job).Error
}

// GetJobByID 按ID查询岗位
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.JobPosting, error) {
	var job models.JobPosting
	err := m.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs 列出岗位，按创建时间倒序
// recruiterID非空时只返回该招聘方名下的岗位，status非空时按状态过滤
func (m *MySQL) ListJobs(ctx context.Context, recruiterID, status string) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	q := m.db.WithContext(ctx).Order("created_at DESC")
	if recruiterID != "" {
		q = q.Where("recruiter_id = ?", recruiterID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListOpenJobsExcept 列出其他在招岗位（拒信反馈中引用市场机会）
func (m *MySQL) ListOpenJobsExcept(ctx context.Context, excludeJobID string, limit int) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	err := m.db.WithContext(ctx).
		Where("status = ? AND job_id <> ?", "Open", excludeJobID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// --- 筛选结果 ---

// CreateScreeningResult 写入一条筛选结果
func (m *MySQL) CreateScreeningResult(ctx context.Context, result *models.ScreeningResult) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CreateScreeningResult",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.sql.table", "screening_results"),
		attribute.String("application.id", result.ApplicationID),
	)

	if err := m.db.WithContext(ctx).Create(result).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetScreeningResult 按投递ID查询筛选结果
func (m *MySQL) GetScreeningResult(ctx context.Context, applicationID string) (*models.ScreeningResult, error) {
	var r models.ScreeningResult
	err := m.db.WithContext(ctx).First(&r, "application_id = ?", applicationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResultsByJob 列出岗位下全部筛选结果，按匹配分降序
func (m *MySQL) ListResultsByJob(ctx context.Context, jobID string) ([]models.ScreeningResult, error) {
	var results []models.ScreeningResult
	err := m.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("match_score DESC, created_at ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetResultsByIDs 按ID集合查询岗位下的筛选结果
func (m *MySQL) GetResultsByIDs(ctx context.Context, jobID string, ids []string) ([]models.ScreeningResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var results []models.ScreeningResult
	err := m.db.WithContext(ctx).
		Where("job_id = ? AND application_id IN ?", jobID, ids).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListTopResults 按匹配分降序取不低于下限分的前N条
func (m *MySQL) ListTopResults(ctx context.Context, jobID string, scoreFloor, limit int) ([]models.ScreeningResult, error) {
	var results []models.ScreeningResult
	err := m.db.WithContext(ctx).
		Where("job_id = ? AND match_score >= ?", jobID, scoreFloor).
		Order("match_score DESC, created_at ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateResultStatus 更新投递状态
func (m *MySQL) UpdateResultStatus(ctx context.Context, applicationID, status string) error {
	return m.db.WithContext(ctx).
		Model(&models.ScreeningResult{}).
		Where("application_id = ?", applicationID).
		Update("status", status).Error
}

// SaveAdviceText 留存长文档正文，kind对应固定列名
func (m *MySQL) SaveAdviceText(ctx context.Context, applicationID, kind, text string) error {
	column := "interview_guidance"
	if kind == "feedback" {
		column = "rejection_feedback"
	}
	return m.db.WithContext(ctx).
		Model(&models.ScreeningResult{}).
		Where("application_id = ?", applicationID).
		Update(column, text).Error
}

// ResumeMD5Seen 检查同岗位下该文件MD5是否已有结果（Redis不可用时的兜底）
func (m *MySQL) ResumeMD5Seen(ctx context.Context, jobID, md5sum string) (bool, error) {
	var count int64
	err := m.db.WithContext(ctx).
		Model(&models.ScreeningResult{}).
		Where("job_id = ? AND resume_md5 = ?", jobID, md5sum).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
