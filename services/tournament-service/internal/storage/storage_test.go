package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracket-esports/bracket/common/config"
	apperrors "github.com/bracket-esports/bracket/common/errors"
)

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.gg/banners/t-1.png", JoinURL("https://cdn.example.gg/", "/banners/t-1.png"))
	assert.Equal(t, "https://cdn.example.gg/a/b.webp", JoinURL("https://cdn.example.gg", "a/b.webp"))
	assert.Empty(t, JoinURL("", "a.png"))
}

func TestImageExtension(t *testing.T) {
	ext, err := ImageExtension("image/jpeg", 1024)
	require.NoError(t, err)
	assert.Equal(t, "jpg", ext)

	_, err = ImageExtension("image/gif", 1024)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))

	_, err = ImageExtension("image/png", MaxImageBytes+1)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}

func TestNewS3UploaderValidatesConfig(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), config.StorageConfig{Bucket: "media"})
	assert.Error(t, err)

	uploader, err := NewS3Uploader(context.Background(), config.StorageConfig{
		Bucket:          "media",
		PublicBaseURL:   "https://cdn.example.gg",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.gg/x.png", uploader.PublicURL("x.png"))
}

func TestDisabledUploaderRejects(t *testing.T) {
	_, err := Disabled().Upload(context.Background(), "k", "image/png", nil)
	assert.Equal(t, apperrors.CodeServiceUnavailable, apperrors.CodeOf(err))
}
