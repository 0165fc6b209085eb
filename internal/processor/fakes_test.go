package processor

import (
	"context"
	"sync"
	"time"

	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/types"
)

type fakeJobStore struct {
	jobs   map[string]*models.JobPosting
	market []models.JobPosting
}

func (f *fakeJobStore) GetJobByID(ctx context.Context, jobID string) (*models.JobPosting, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobStore) ListOpenJobsExcept(ctx context.Context, excludeJobID string, limit int) ([]models.JobPosting, error) {
	var out []models.JobPosting
	for _, j := range f.market {
		if j.JobID != excludeJobID && len(out) < limit {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeResultStore struct {
	mu       sync.Mutex
	results  map[string]*models.ScreeningResult
	statuses map[string]string
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{
		results:  make(map[string]*models.ScreeningResult),
		statuses: make(map[string]string),
	}
}

func (f *fakeResultStore) CreateScreeningResult(ctx context.Context, r *models.ScreeningResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[r.ApplicationID] = r
	return nil
}

func (f *fakeResultStore) GetScreeningResult(ctx context.Context, applicationID string) (*models.ScreeningResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[applicationID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeResultStore) ListResultsByJob(ctx context.Context, jobID string) ([]models.ScreeningResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScreeningResult
	for _, r := range f.results {
		if r.JobID == jobID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResultStore) GetResultsByIDs(ctx context.Context, jobID string, ids []string) ([]models.ScreeningResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScreeningResult
	for _, id := range ids {
		if r, ok := f.results[id]; ok && r.JobID == jobID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResultStore) ListTopResults(ctx context.Context, jobID string, scoreFloor, limit int) ([]models.ScreeningResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScreeningResult
	for _, r := range f.results {
		if r.JobID == jobID && r.MatchScore >= scoreFloor {
			out = append(out, *r)
		}
	}
	// 简单选择排序：按分数降序
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].MatchScore > out[i].MatchScore {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeResultStore) UpdateResultStatus(ctx context.Context, applicationID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[applicationID] = status
	if r, ok := f.results[applicationID]; ok {
		r.Status = status
	}
	return nil
}

func (f *fakeResultStore) SaveAdviceText(ctx context.Context, applicationID, kind, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[applicationID]
	if !ok {
		return storage.ErrNotFound
	}
	if kind == "guidance" {
		r.InterviewGuidance = text
	} else {
		r.RejectionFeedback = text
	}
	return nil
}

func (f *fakeResultStore) ResumeMD5Seen(ctx context.Context, jobID, md5sum string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.JobID == jobID && r.ResumeMD5 == md5sum {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResultStore) add(r *models.ScreeningResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[r.ApplicationID] = r
}

type fakeExtractor struct {
	failFor map[string]error // 文件路径 -> 错误
	text    string
}

func (f *fakeExtractor) ExtractTextFromFile(ctx context.Context, path string) (string, error) {
	if err, ok := f.failFor[path]; ok {
		return "", err
	}
	if f.text == "" {
		return "extracted resume text", nil
	}
	return f.text, nil
}

type fakeEvaluator struct {
	mu            sync.Mutex
	scoreByText   map[string]int // 简历文本 -> 分数
	failFor       map[string]error
	callCount     int
	inFlight      int
	maxInFlight   int
	blockDuration time.Duration
}

func (f *fakeEvaluator) Analyze(ctx context.Context, resumeText string, job *models.JobPosting) (*types.ResumeAnalysis, error) {
	f.mu.Lock()
	f.callCount++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.blockDuration > 0 {
		time.Sleep(f.blockDuration)
	}

	f.mu.Lock()
	f.inFlight--
	err := f.failFor[resumeText]
	score, ok := f.scoreByText[resumeText]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		score = 70
	}
	return &types.ResumeAnalysis{
		CandidateName:  "Alex Doe",
		CandidateEmail: "alex@example.com",
		MatchScore:     score,
		MatchStatus:    types.MatchStatusGood,
		Summary:        "The candidate meets most requirements.",
	}, nil
}

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeDedup) MarkResumeSeen(ctx context.Context, jobID, md5sum string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	key := jobID + ":" + md5sum
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []storage.EmailMessage
	failFor map[string]bool // 收件地址 -> 发送失败
}

func (f *fakeNotifier) Send(ctx context.Context, msg storage.EmailMessage) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[msg.To] {
		return false
	}
	f.sent = append(f.sent, msg)
	return true
}

type fakeAdviceCache struct {
	mu   sync.Mutex
	docs map[string]*types.AdviceDocument
}

func newFakeAdviceCache() *fakeAdviceCache {
	return &fakeAdviceCache{docs: make(map[string]*types.AdviceDocument)}
}

func (f *fakeAdviceCache) GetAdviceDocument(ctx context.Context, kind, applicationID string) (*types.AdviceDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[kind+":"+applicationID]
	if !ok {
		return nil, storage.ErrCacheMiss
	}
	return doc, nil
}

func (f *fakeAdviceCache) SetAdviceDocument(ctx context.Context, kind, applicationID string, doc *types.AdviceDocument, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[kind+":"+applicationID] = doc
	return nil
}
