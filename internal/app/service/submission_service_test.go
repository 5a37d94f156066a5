package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
	"olymphub/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProblem(t *testing.T, env *testEnv, id, olympiadID string, maxScore int) *model.Problem {
	t.Helper()
	p := &model.Problem{
		ID:         id,
		OlympiadID: olympiadID,
		Title:      "Task " + id,
		Statement:  "Solve it.",
		MaxScore:   maxScore,
	}
	require.NoError(t, env.probRepo.Create(context.Background(), nil, p))
	return p
}

func activeWorld(t *testing.T, env *testEnv) *model.Problem {
	t.Helper()
	env.addUser("stu-1", "alice", model.RoleStudent)
	env.addUser("t-1", "prof", model.RoleTeacher)
	seedOlympiad(t, env, "oly-1", "t-1", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	return seedProblem(t, env, "prob-1", "oly-1", 100)
}

func upload(name string, size int) FileUpload {
	return FileUpload{
		Filename: name,
		Size:     int64(size),
		Data:     bytes.NewReader(bytes.Repeat([]byte("a"), size)),
	}
}

func TestSubmitCreatesPendingSubmission(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)

	sub, err := env.submissions.Submit(context.Background(), "stu-1", "prob-1", upload("solution.py", 5*1024))
	require.NoError(t, err)

	assert.Equal(t, model.SubmissionPending, sub.Status)
	assert.Nil(t, sub.Score)
	assert.Equal(t, "solution.py", sub.OriginalFilename)
	assert.Equal(t, int64(5*1024), sub.SizeBytes)
	assert.NotEqual(t, "solution.py", sub.FilePath, "stored name must never be the uploader's name")
	assert.True(t, strings.HasPrefix(sub.FilePath, "submissions/oly-1/stu-1_"))
	assert.True(t, strings.HasSuffix(sub.FilePath, ".py"))

	exists, err := env.store.Exists(context.Background(), sub.FilePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSubmitAutoEnrolls(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)

	assert.Empty(t, env.enrollRepo.enrollments)
	_, err := env.submissions.Submit(context.Background(), "stu-1", "prob-1", upload("a.txt", 10))
	require.NoError(t, err)
	assert.Len(t, env.enrollRepo.enrollments, 1)

	// A second submission reuses the enrollment.
	_, err = env.submissions.Submit(context.Background(), "stu-1", "prob-1", upload("b.txt", 10))
	require.NoError(t, err)
	assert.Len(t, env.enrollRepo.enrollments, 1)
	assert.Len(t, env.subRepo.submissions, 2, "resubmission is unlimited")
}

func TestSubmitValidatesFile(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	ctx := context.Background()

	cases := []struct {
		name string
		up   FileUpload
	}{
		{"empty file", upload("empty.pdf", 0)},
		{"oversized file", FileUpload{Filename: "big.zip", Size: 10<<20 + 1, Data: bytes.NewReader(nil)}},
		{"disallowed extension", upload("malware.exe", 128)},
		{"no extension", upload("README", 128)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.submissions.Submit(ctx, "stu-1", "prob-1", tc.up)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
	assert.Empty(t, env.subRepo.submissions, "rejected uploads must not create records")
	assert.Equal(t, 0, env.store.count(), "rejected uploads must not leave files")
}

func TestSubmitAcceptsOneBytePdf(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)

	sub, err := env.submissions.Submit(context.Background(), "stu-1", "prob-1", upload("tiny.PDF", 1))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sub.FilePath, ".pdf"), "extension check is case-insensitive")
}

func TestSubmitRejectsInactiveOlympiads(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("stu-1", "alice", model.RoleStudent)
	env.addUser("t-1", "prof", model.RoleTeacher)
	seedOlympiad(t, env, "oly-up", "t-1", time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	seedOlympiad(t, env, "oly-closed", "t-1", time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
	seedProblem(t, env, "prob-up", "oly-up", 100)
	seedProblem(t, env, "prob-closed", "oly-closed", 100)

	ctx := context.Background()
	for _, problemID := range []string{"prob-up", "prob-closed"} {
		_, err := env.submissions.Submit(ctx, "stu-1", problemID, upload("sol.py", 100))
		assert.ErrorIs(t, err, common.ErrInvalidState)
	}
	assert.Empty(t, env.subRepo.submissions)
}

func TestSubmitRemovesFileWhenInsertFails(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	env.subRepo.failCreate = errors.New("disk on fire")

	_, err := env.submissions.Submit(context.Background(), "stu-1", "prob-1", upload("sol.py", 100))
	require.Error(t, err)
	assert.Empty(t, env.subRepo.submissions, "no partial record")
	assert.Equal(t, 0, env.store.count(), "stored file must be rolled back with the row")
}

func TestSubmitFailsWithStorageErrorWhenWriteFails(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	env.store.failSave = errors.New("volume detached")

	_, err := env.submissions.Submit(context.Background(), "stu-1", "prob-1", upload("sol.py", 100))
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Empty(t, env.subRepo.submissions, "no partial record")
	assert.Equal(t, 0, env.store.count())
}

func TestSubmitHonorsConfiguredSizeLimit(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)

	old := config.AppConfig.MaxSubmissionBytes
	config.AppConfig.MaxSubmissionBytes = 1024
	defer func() { config.AppConfig.MaxSubmissionBytes = old }()

	_, err := env.submissions.Submit(context.Background(), "stu-1", "prob-1", upload("sol.py", 4*1024))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, env.subRepo.submissions)
	assert.Equal(t, 0, env.store.count())
}

func TestReviewSetsScoreAndStatus(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	ctx := context.Background()

	sub, err := env.submissions.Submit(ctx, "stu-1", "prob-1", upload("sol.py", 100))
	require.NoError(t, err)

	reviewed, err := env.submissions.Review(ctx, "t-1", sub.ID, ReviewRequest{Score: 80, Comment: "solid"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionReviewed, reviewed.Status)
	require.NotNil(t, reviewed.Score)
	assert.Equal(t, 80, *reviewed.Score)
	assert.Equal(t, "solid", reviewed.Comment)
	require.NotNil(t, reviewed.ReviewedByID)
	assert.Equal(t, "t-1", *reviewed.ReviewedByID)
}

func TestReviewAllowsOlympiadCreator(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	ctx := context.Background()

	// The creator keeps grading rights even with a student role profile.
	env.userRepo.profiles["t-1"].Role = model.RoleStudent

	sub, err := env.submissions.Submit(ctx, "stu-1", "prob-1", upload("sol.py", 100))
	require.NoError(t, err)

	_, err = env.submissions.Review(ctx, "t-1", sub.ID, ReviewRequest{Score: 50})
	assert.NoError(t, err)
}

func TestReviewRejectsUnauthorizedGrader(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	env.addUser("stu-2", "bob", model.RoleStudent)
	ctx := context.Background()

	sub, err := env.submissions.Submit(ctx, "stu-1", "prob-1", upload("sol.py", 100))
	require.NoError(t, err)

	_, err = env.submissions.Review(ctx, "stu-2", sub.ID, ReviewRequest{Score: 100})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestReviewRejectsOutOfRangeScore(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	ctx := context.Background()

	sub, err := env.submissions.Submit(ctx, "stu-1", "prob-1", upload("sol.py", 100))
	require.NoError(t, err)
	_, err = env.submissions.Review(ctx, "t-1", sub.ID, ReviewRequest{Score: 60, Comment: "first pass"})
	require.NoError(t, err)

	for _, score := range []int{-1, 101} {
		_, err = env.submissions.Review(ctx, "t-1", sub.ID, ReviewRequest{Score: score})
		assert.ErrorIs(t, err, common.ErrValidation)
	}

	// Prior verdict untouched by the failed attempts.
	stored, err := env.subRepo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 60, *stored.Score)
	assert.Equal(t, "first pass", stored.Comment)
	assert.Equal(t, model.SubmissionReviewed, stored.Status)
}

func TestReviewOverwritesPriorVerdict(t *testing.T) {
	env := newTestEnv(t)
	activeWorld(t, env)
	ctx := context.Background()

	sub, err := env.submissions.Submit(ctx, "stu-1", "prob-1", upload("sol.py", 100))
	require.NoError(t, err)

	_, err = env.submissions.Review(ctx, "t-1", sub.ID, ReviewRequest{Score: 40, Comment: "first"})
	require.NoError(t, err)
	reviewed, err := env.submissions.Review(ctx, "t-1", sub.ID, ReviewRequest{Score: 90, Comment: "second"})
	require.NoError(t, err)

	assert.Equal(t, 90, *reviewed.Score)
	assert.Equal(t, "second", reviewed.Comment)
}
