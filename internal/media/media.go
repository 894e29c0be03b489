// Package media хранит картинки постов.
package media

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const postsDir = "posts"

var (
	ErrNotImage = errors.New("upload a valid image")
	ErrTooLarge = errors.New("image is too large")
	ErrEmpty    = errors.New("the submitted file is empty")
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
}

// Upload - загруженный пользователем файл.
type Upload struct {
	Filename string
	Data     []byte
}

// Store кладет файлы в afero.Fs. В проде это каталог на диске, в тестах - память.
type Store struct {
	fs       afero.Fs
	baseURL  string
	maxBytes int64
}

func New(fs afero.Fs, baseURL string, maxBytes int64) *Store {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Store{fs: fs, baseURL: baseURL, maxBytes: maxBytes}
}

// IsImageFile проверяет расширение имени файла.
func IsImageFile(filename string) bool {
	return imageExts[strings.ToLower(filepath.Ext(filename))]
}

// Validate проверяет размер, расширение и содержимое файла.
// Возвращает расширение, под которым файл будет сохранен.
func (s *Store) Validate(u *Upload) (string, error) {
	if len(u.Data) == 0 {
		return "", ErrEmpty
	}
	if s.maxBytes > 0 && int64(len(u.Data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	if !IsImageFile(u.Filename) {
		return "", ErrNotImage
	}
	mt := mimetype.Detect(u.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}
	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(u.Filename))
	}
	return ext, nil
}

// Save проверяет и сохраняет картинку, возвращает ее путь внутри хранилища.
func (s *Store) Save(u *Upload) (string, error) {
	ext, err := s.Validate(u)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(fsPath(postsDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}
	name := path.Join(postsDir, uuid.NewString()+ext)
	if err := afero.WriteFile(s.fs, fsPath(name), u.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return name, nil
}

// Exists сообщает, есть ли файл по пути name.
func (s *Store) Exists(name string) (bool, error) {
	return afero.Exists(s.fs, fsPath(name))
}

// Delete удаляет файл; отсутствие файла не ошибка.
func (s *Store) Delete(name string) error {
	if name == "" {
		return nil
	}
	err := s.fs.Remove(fsPath(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// fsPath делает путь абсолютным: так же файлы ищет http.FileServer.
func fsPath(name string) string {
	return path.Join("/", name)
}

// URL возвращает адрес, по которому файл отдается клиентам.
func (s *Store) URL(name string) string {
	if name == "" {
		return ""
	}
	return s.baseURL + name
}

// MaxBytes - предельный размер файла, 0 - без ограничения.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// BaseURL - префикс адресов файлов, всегда со слешем на конце.
func (s *Store) BaseURL() string {
	return s.baseURL
}

// Handler отдает файлы хранилища. Монтируется на baseURL.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(s.baseURL, http.FileServer(afero.NewHttpFs(s.fs).Dir("/")))
}
