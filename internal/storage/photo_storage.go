package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// Ошибки проверки загружаемого файла.
var (
	ErrUnsupportedType = errors.New("storage: разрешены только изображения jpeg, png, webp")
	ErrTooLarge        = errors.New("storage: размер файла превышает лимит")
)

// allowedMimeTypes: MIME по магическим байтам и расширение сохранённого файла.
var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// sniffLen: сколько байт нужно filetype для определения типа.
const sniffLen = 261

// PhotoStorage хранит фото посылок на локальном диске.
type PhotoStorage struct {
	rootPath       string
	publicBaseURL  string
	maxUploadBytes int64
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath, publicBaseURL string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		publicBaseURL:  publicBaseURL,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Root: каталог, который раздаётся по /media.
func (s *PhotoStorage) Root() string { return s.rootPath }

// MaxUploadBytes: лимит размера одного файла.
func (s *PhotoStorage) MaxUploadBytes() int64 { return s.maxUploadBytes }

// Save проверяет тип по содержимому, сохраняет файл и возвращает относительный путь.
// Имя файла генерируется; исходное имя клиента не используется.
func (s *PhotoStorage) Save(ctx context.Context, ownerID uuid.UUID, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", 0, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", 0, ErrUnsupportedType
	}
	ext, ok := allowedMimeTypes[kind.MIME.Value]
	if !ok {
		return "", 0, ErrUnsupportedType
	}

	ownerDir := filepath.Join(s.rootPath, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	fileName := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
	targetPath := filepath.Join(ownerDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, ErrTooLarge
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return path.Join(ownerID.String(), fileName), written, nil
}

// URL: публичная ссылка на сохранённый файл.
func (s *PhotoStorage) URL(relativePath string) string {
	return s.publicBaseURL + "/media/" + relativePath
}

// Delete удаляет файл из хранилища.
func (s *PhotoStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, filepath.FromSlash(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
