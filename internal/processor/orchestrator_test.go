package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-recruiter-go/internal/storage/models"
	"ai-recruiter-go/internal/types"
)

// writeTempResume 落盘一个以内容区分的假PDF文件
func writeTempResume(t *testing.T, dir, name, content string) UploadedFile {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return UploadedFile{
		Path:        path,
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
	}
}

func newTestOrchestrator(jobs *fakeJobStore, results *fakeResultStore, extractor *fakeExtractor, evaluator *fakeEvaluator) *Orchestrator {
	return NewOrchestrator(extractor, evaluator, jobs, results, nil, &fakeDedup{}, 5, 100)
}

func singleJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[string]*models.JobPosting{"job-1": testJob()}}
}

func TestBulkScreenJobNotFound(t *testing.T) {
	o := newTestOrchestrator(singleJobStore(), newFakeResultStore(), &fakeExtractor{}, &fakeEvaluator{})

	dir := t.TempDir()
	files := []UploadedFile{writeTempResume(t, dir, "a.pdf", "resume a")}

	_, err := o.BulkScreen(context.Background(), "missing-job", files)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestBulkScreenNoFiles(t *testing.T) {
	o := newTestOrchestrator(singleJobStore(), newFakeResultStore(), &fakeExtractor{}, &fakeEvaluator{})

	_, err := o.BulkScreen(context.Background(), "job-1", nil)
	assert.ErrorIs(t, err, ErrNoFilesSupplied)
}

func TestBulkScreenChunkConcurrencyBound(t *testing.T) {
	evaluator := &fakeEvaluator{blockDuration: 30 * time.Millisecond}
	results := newFakeResultStore()
	o := newTestOrchestrator(singleJobStore(), results, &fakeExtractor{}, evaluator)

	dir := t.TempDir()
	var files []UploadedFile
	for i := 0; i < 7; i++ {
		files = append(files, writeTempResume(t, dir, fmt.Sprintf("r%d.pdf", i), fmt.Sprintf("resume %d", i)))
	}

	report, err := o.BulkScreen(context.Background(), "job-1", files)
	require.NoError(t, err)

	assert.Equal(t, 7, report.TotalProcessed)
	assert.Equal(t, 7, evaluator.callCount)
	// 分片大小为5：并发峰值不超过5
	assert.LessOrEqual(t, evaluator.maxInFlight, 5)
	// 7个文件全部入库
	assert.Len(t, results.results, 7)
}

func TestBulkScreenIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	fileA := writeTempResume(t, dir, "a.pdf", "resume a")
	fileB := writeTempResume(t, dir, "b.pdf", "resume b")
	fileC := writeTempResume(t, dir, "c.pdf", "resume c")

	extractor := &fakeExtractor{failFor: map[string]error{
		fileB.Path: NewExtractError("b.pdf", "损坏的PDF"),
	}}
	results := newFakeResultStore()
	o := newTestOrchestrator(singleJobStore(), results, extractor, &fakeEvaluator{})

	report, err := o.BulkScreen(context.Background(), "job-1", []UploadedFile{fileA, fileB, fileC})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	var okCount, errCount int
	for _, r := range report.Results {
		if r.Succeeded() {
			okCount++
		} else {
			errCount++
			assert.Equal(t, "b.pdf", r.File)
		}
	}
	assert.Equal(t, 2, okCount)
	assert.Equal(t, 1, errCount)
	// 失败文件不入库，入库的结果初始状态为已筛选
	assert.Len(t, results.results, 2)
	for _, r := range results.results {
		assert.Equal(t, string(types.StatusScreened), r.Status)
	}
}

func TestBulkScreenRemovesTempFilesUnconditionally(t *testing.T) {
	dir := t.TempDir()
	fileA := writeTempResume(t, dir, "a.pdf", "resume a")
	fileB := writeTempResume(t, dir, "b.txt", "not a pdf")

	o := newTestOrchestrator(singleJobStore(), newFakeResultStore(), &fakeExtractor{}, &fakeEvaluator{})

	_, err := o.BulkScreen(context.Background(), "job-1", []UploadedFile{fileA, fileB})
	require.NoError(t, err)

	// 成功和失败的临时文件都应已删除
	_, err = os.Stat(fileA.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fileB.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestBulkScreenRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	file := writeTempResume(t, dir, "resume.docx", "word doc")

	o := newTestOrchestrator(singleJobStore(), newFakeResultStore(), &fakeExtractor{}, &fakeEvaluator{})

	report, err := o.BulkScreen(context.Background(), "job-1", []UploadedFile{file})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "error", report.Results[0].Status)
}

func TestBulkScreenSortsByScoreDescending(t *testing.T) {
	dir := t.TempDir()
	low := writeTempResume(t, dir, "low.pdf", "low resume")
	high := writeTempResume(t, dir, "high.pdf", "high resume")
	mid := writeTempResume(t, dir, "mid.pdf", "mid resume")

	// 按路径区分提取文本，再按文本区分分数
	perFile := &pathTextExtractor{texts: map[string]string{
		low.Path:  "low text",
		high.Path: "high text",
		mid.Path:  "mid text",
	}}
	evaluator := &fakeEvaluator{scoreByText: map[string]int{
		"low text":  30,
		"high text": 95,
		"mid text":  60,
	}}

	o := NewOrchestrator(perFile, evaluator, singleJobStore(), newFakeResultStore(), nil, &fakeDedup{}, 5, 100)

	report, err := o.BulkScreen(context.Background(), "job-1", []UploadedFile{low, high, mid})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.Equal(t, "high.pdf", report.Results[0].File)
	assert.Equal(t, "mid.pdf", report.Results[1].File)
	assert.Equal(t, "low.pdf", report.Results[2].File)
}

type pathTextExtractor struct {
	texts map[string]string
}

func (p *pathTextExtractor) ExtractTextFromFile(ctx context.Context, path string) (string, error) {
	return p.texts[path], nil
}

func TestAnalyzeOnlyDoesNotPersist(t *testing.T) {
	dir := t.TempDir()
	file := writeTempResume(t, dir, "resume.pdf", "resume content")

	results := newFakeResultStore()
	o := newTestOrchestrator(singleJobStore(), results, &fakeExtractor{}, &fakeEvaluator{})

	analysis, err := o.AnalyzeOnly(context.Background(), "", "We need a Go engineer.", file)
	require.NoError(t, err)
	assert.Equal(t, 70, analysis.MatchScore)

	// 即席评估不落库，临时文件同样被删除
	assert.Empty(t, results.results)
	_, err = os.Stat(file.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyzeOnlyRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	file := writeTempResume(t, dir, "resume.txt", "plain text")

	o := newTestOrchestrator(singleJobStore(), newFakeResultStore(), &fakeExtractor{}, &fakeEvaluator{})

	_, err := o.AnalyzeOnly(context.Background(), "", "jd", file)
	assert.ErrorIs(t, err, ErrInvalidFileFormat)
}

func TestBulkScreenSkipsDuplicateFiles(t *testing.T) {
	dir := t.TempDir()
	// 内容相同的两个文件MD5一致
	first := writeTempResume(t, dir, "first.pdf", "identical content")
	second := writeTempResume(t, dir, "second.pdf", "identical content")

	evaluator := &fakeEvaluator{}
	results := newFakeResultStore()
	o := NewOrchestrator(&fakeExtractor{}, evaluator, singleJobStore(), results, nil, &fakeDedup{}, 1, 100)

	report, err := o.BulkScreen(context.Background(), "job-1", []UploadedFile{first, second})
	require.NoError(t, err)

	var okCount, errCount int
	for _, r := range report.Results {
		if r.Succeeded() {
			okCount++
		} else {
			errCount++
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, errCount)
	// 重复文件不触发LLM调用
	assert.Equal(t, 1, evaluator.callCount)
}
