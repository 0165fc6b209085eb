package models

import (
	"time"

	"gorm.io/datatypes"
)

// Recruiter 招聘方账号表，APIKey用于接口鉴权
type Recruiter struct {
	RecruiterID    string    `gorm:"type:char(36);primaryKey"`
	Name           string    `gorm:"type:varchar(255);not null"`
	Email          string    `gorm:"type:varchar(255);unique;not null"`
	PasswordHash   string    `gorm:"type:varchar(255)" json:"-"`
	Company        string    `gorm:"type:varchar(255)"`
	CompanyWebsite string    `gorm:"type:varchar(512)"`
	Role           string    `gorm:"type:varchar(20);default:'recruiter'"` // recruiter / admin
	APIKey         string    `gorm:"type:char(64);uniqueIndex:idx_recruiters_api_key;not null" json:"-"`
	IsActive       bool      `gorm:"default:true"`
	CreatedAt      time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Recruiter) TableName() string {
	return "recruiters"
}

// JobPosting 岗位表
type JobPosting struct {
	JobID                 string         `gorm:"type:char(36);primaryKey"`
	RecruiterID           *string        `gorm:"type:char(36);index:idx_jobs_recruiter_id"`
	Title                 string         `gorm:"type:varchar(255);not null"`
	Department            string         `gorm:"type:varchar(255)"`
	Description           string         `gorm:"type:text;not null"`
	Requirements          string         `gorm:"type:text"`
	RequiredSkillsJSON    datatypes.JSON `gorm:"type:json"`
	RecruitmentPhasesJSON datatypes.JSON `gorm:"type:json"`
	ExperienceLevel       string         `gorm:"type:varchar(50)"` // entry / mid / senior
	EmploymentType        string         `gorm:"type:varchar(50)"`
	Location              string         `gorm:"type:varchar(255)"`
	SalaryRange           string         `gorm:"type:varchar(100)"`
	Vacancies             int            `gorm:"default:1"`
	Status                string         `gorm:"type:varchar(50);default:'Open';index:idx_jobs_status"`
	Deadline              *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Recruiter *Recruiter `gorm:"foreignKey:RecruiterID;references:RecruiterID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (JobPosting) TableName() string {
	return "job_postings"
}

// ScreeningResult 筛选结果表，一行对应一份简历在某岗位下的评估
// AIAnalysis 写入后不再修改，MatchScore 冗余一份用于排序
type ScreeningResult struct {
	ApplicationID  string         `gorm:"type:char(36);primaryKey"`
	JobID          string         `gorm:"type:char(36);not null;index:idx_sr_job_id_score,priority:1"`
	CandidateName  string         `gorm:"type:varchar(255)"`
	CandidateEmail string         `gorm:"type:varchar(255)"`
	ResumeFilename string         `gorm:"type:varchar(255)"`
	ResumePath     string         `gorm:"type:varchar(1024)"` // MinIO对象键
	ResumeMD5      string         `gorm:"type:char(32);index:idx_sr_resume_md5"`
	MatchScore     int            `gorm:"type:int;index:idx_sr_job_id_score,priority:2"`
	AIAnalysis     datatypes.JSON `gorm:"type:json"`
	// 长文档生成一次后永久留存，非空即不再重新生成
	InterviewGuidance string    `gorm:"type:text"`
	RejectionFeedback string    `gorm:"type:text"`
	Status            string    `gorm:"type:varchar(50);default:'Applied';index:idx_sr_status"`
	CreatedAt         time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt         time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Job *JobPosting `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ScreeningResult) TableName() string {
	return "screening_results"
}
