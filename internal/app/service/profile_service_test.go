package service

import (
	"context"
	"testing"

	"olymphub/internal/common"
	"olymphub/internal/domain/model"
	"olymphub/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAvatarStoresFileAndUpdatesProfile(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("stu-1", "alice", model.RoleStudent)
	ctx := context.Background()

	profile, err := env.profiles.UploadAvatar(ctx, "stu-1", upload("me.png", 4*1024))
	require.NoError(t, err)
	require.NotNil(t, profile.AvatarPath)
	assert.Equal(t, 1, env.store.count())

	// A second upload replaces the stored file, not accumulates.
	first := *profile.AvatarPath
	profile, err = env.profiles.UploadAvatar(ctx, "stu-1", upload("me2.jpg", 4*1024))
	require.NoError(t, err)
	require.NotNil(t, profile.AvatarPath)
	assert.NotEqual(t, first, *profile.AvatarPath)
	assert.Equal(t, 1, env.store.count(), "old avatar must be deleted")
}

func TestUploadAvatarRejectsBadFiles(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("stu-1", "alice", model.RoleStudent)
	ctx := context.Background()

	for name, up := range map[string]FileUpload{
		"empty":         upload("me.png", 0),
		"wrong type":    upload("me.exe", 1024),
		"over the 2MiB": upload("me.png", 2<<20+1),
	} {
		_, err := env.profiles.UploadAvatar(ctx, "stu-1", up)
		assert.ErrorIs(t, err, common.ErrValidation, name)
	}
	assert.Equal(t, 0, env.store.count())
}

func TestUploadAvatarHonorsConfiguredSizeLimit(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("stu-1", "alice", model.RoleStudent)

	old := config.AppConfig.MaxAvatarBytes
	config.AppConfig.MaxAvatarBytes = 1024
	defer func() { config.AppConfig.MaxAvatarBytes = old }()

	_, err := env.profiles.UploadAvatar(context.Background(), "stu-1", upload("me.png", 4*1024))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, 0, env.store.count())
}
