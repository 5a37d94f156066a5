package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"olymphub/internal/api/middleware"
	"olymphub/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{
		MaxSubmissionBytes: 1 << 20,
		MaxAvatarBytes:     1 << 20,
	}
	os.Exit(m.Run())
}

func multipartBody(t *testing.T, filename string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("a"), size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func authedUploadRequest(t *testing.T, target string, size int) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, "payload.py", size)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDCtxKey, "stu-1"))
}

// An oversized body must be cut off at the transport level, before any
// part of it reaches disk or the service layer.
func TestSubmitRejectsOversizedBody(t *testing.T) {
	h := NewProblemHandler(nil, nil)

	req := authedUploadRequest(t, "/api/v1/problems/prob-1/submissions", 3<<20)
	rec := httptest.NewRecorder()
	h.submit(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadAvatarRejectsOversizedBody(t *testing.T) {
	h := NewProfileHandler(nil)

	req := authedUploadRequest(t, "/api/v1/profile/avatar", 3<<20)
	rec := httptest.NewRecorder()
	h.uploadAvatar(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
