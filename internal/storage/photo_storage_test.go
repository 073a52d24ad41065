package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPNG: заголовок PNG и IHDR; filetype определяет тип по сигнатуре.
var minimalPNG = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)

func TestPhotoStorage_SavePNG(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPhotoStorage(dir, "http://localhost:8080", 1)
	require.NoError(t, err)

	owner := uuid.New()
	rel, size, err := s.Save(context.Background(), owner, bytes.NewReader(minimalPNG))
	require.NoError(t, err)
	assert.Equal(t, int64(len(minimalPNG)), size)
	assert.True(t, strings.HasPrefix(rel, owner.String()+"/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))
	assert.Equal(t, "http://localhost:8080/media/"+rel, s.URL(rel))

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, minimalPNG, stored)

	require.NoError(t, s.Delete(context.Background(), rel))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))
}

func TestPhotoStorage_RejectsNonImage(t *testing.T) {
	s, err := NewPhotoStorage(t.TempDir(), "", 1)
	require.NoError(t, err)

	_, _, err = s.Save(context.Background(), uuid.New(), strings.NewReader("#!/bin/sh\necho pwned\n"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPhotoStorage_RejectsOversized(t *testing.T) {
	s, err := NewPhotoStorage(t.TempDir(), "", 1)
	require.NoError(t, err)

	big := append(append([]byte{}, minimalPNG...), bytes.Repeat([]byte{1}, 1024*1024)...)
	_, _, err = s.Save(context.Background(), uuid.New(), bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}
