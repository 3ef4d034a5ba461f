package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const avatarDir = "avatars"

var (
	// ErrNotAnImage is returned when the upload does not sniff as a supported image.
	ErrNotAnImage = errors.New("upload a valid image")
	// ErrTooLarge is returned when the upload exceeds the configured limit.
	ErrTooLarge = errors.New("file too large")
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarUpload is an uploaded avatar file.
type AvatarUpload struct {
	Filename string
	Content  io.Reader
}

// AvatarStore saves and removes avatar blobs. Paths are relative to the media root.
type AvatarStore interface {
	Save(ctx context.Context, upload AvatarUpload) (string, error)
	Remove(ctx context.Context, relPath string) error
}

// LocalAvatarStore keeps avatars on the local filesystem under the media root.
type LocalAvatarStore struct {
	root     string
	maxBytes int64
}

// NewLocalAvatarStore creates the avatar directory if it is missing.
func NewLocalAvatarStore(root string, maxBytes int64) (*LocalAvatarStore, error) {
	if err := os.MkdirAll(filepath.Join(root, avatarDir), 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalAvatarStore{root: root, maxBytes: maxBytes}, nil
}

// Save writes the upload under a generated name and returns its relative path.
func (s *LocalAvatarStore) Save(_ context.Context, upload AvatarUpload) (string, error) {
	if upload.Content == nil {
		return "", ErrNotAnImage
	}

	reader := bufio.NewReaderSize(upload.Content, 512)
	head, err := reader.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ext, ok := allowedImageTypes[http.DetectContentType(head)]
	if !ok {
		return "", ErrNotAnImage
	}

	rel := path.Join(avatarDir, uuid.NewString()+ext)
	dst := filepath.Join(s.root, filepath.FromSlash(rel))
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}

	var src io.Reader = reader
	if s.maxBytes > 0 {
		src = io.LimitReader(reader, s.maxBytes+1)
	}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil && s.maxBytes > 0 && written > s.maxBytes {
		copyErr = ErrTooLarge
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		return "", errors.Join(copyErr, closeErr)
	}
	return rel, nil
}

// Remove deletes a stored avatar. Missing files are not an error.
func (s *LocalAvatarStore) Remove(_ context.Context, relPath string) error {
	clean := path.Clean("/" + relPath)
	if !strings.HasPrefix(clean, "/"+avatarDir+"/") {
		return fmt.Errorf("refusing to remove %q outside %s", relPath, avatarDir)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
