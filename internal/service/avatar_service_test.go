package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"strings"
	"testing"

	"handbook/internal/config"
	"handbook/internal/models"
	"handbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarService_Process(t *testing.T) {
	svc := NewAvatarService(testutil.NewBlobStoreStub(), &config.Config{AvatarMaxUploadMB: 1})

	t.Run("Small image passes through untouched", func(t *testing.T) {
		content := testutil.TinyPNG(t, 64, 64)
		out, ext, err := svc.Process(content)
		require.NoError(t, err)
		assert.Equal(t, ".png", ext)
		assert.Equal(t, content, out)
	})

	t.Run("Large image is downscaled in its own format", func(t *testing.T) {
		out, ext, err := svc.Process(testutil.TinyJPEG(t, 2048, 1024))
		require.NoError(t, err)
		assert.Equal(t, ".jpg", ext)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, AvatarMaxDimension, cfg.Width)
		assert.Equal(t, AvatarMaxDimension/2, cfg.Height)
	})

	t.Run("Not an image", func(t *testing.T) {
		_, _, err := svc.Process([]byte("%PDF-1.4 definitely not a picture"))
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeValidation))
		assert.Equal(t, "Only images are allowed", models.AsAppError(err).Message)
	})

	t.Run("Oversized declared dimensions are rejected before decoding", func(t *testing.T) {
		content := withPNGDimensions(t, testutil.TinyPNG(t, 1, 1), 30000, 30000)
		cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
		require.NoError(t, err)
		require.Equal(t, 30000, cfg.Width)

		_, _, err = svc.Process(content)
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeValidation))
		assert.Equal(t, "Only images are allowed", models.AsAppError(err).Message)
	})

	t.Run("Too large", func(t *testing.T) {
		_, _, err := svc.Process(bytes.Repeat([]byte{0xff}, 1024*1024+1))
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.CodeValidation))
		assert.Contains(t, models.AsAppError(err).Message, "max 1MB")
	})
}

func TestAvatarService_StoreAndDelete(t *testing.T) {
	blobs := testutil.NewBlobStoreStub()
	svc := NewAvatarService(blobs, nil)
	ctx := context.Background()

	url, err := svc.Store(ctx, testutil.TinyPNG(t, 8, 8))
	require.NoError(t, err)
	assert.True(t, testutil.IsAvatarURL(url))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.True(t, blobs.Has(url))

	assert.True(t, svc.Delete(ctx, &url))
	assert.False(t, blobs.Has(url))
	assert.False(t, svc.Delete(ctx, nil))

	blobs.PutErr = errors.New("disk full")
	_, err = svc.Store(ctx, testutil.TinyPNG(t, 8, 8))
	assert.True(t, models.IsCode(err, models.CodeInternal))
}

// withPNGDimensions rewrites the IHDR size of a PNG and fixes up its checksum.
func withPNGDimensions(t *testing.T, content []byte, width, height uint32) []byte {
	t.Helper()
	out := bytes.Clone(content)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}
