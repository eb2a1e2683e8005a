package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Stored identifies an uploaded object
type Stored struct {
	PublicID string
	URL      string
}

// ObjectStore persists image bytes under a key
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Stored, error)
}

// LocalStore writes objects below a directory served at baseURL
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore returns a store rooted at dir
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, contentType string) (Stored, error) {
	name := key + extension(contentType)
	full := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Stored{}, err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Stored{}, err
	}
	return Stored{PublicID: key, URL: s.baseURL + "/" + path.Clean(name)}, nil
}

// CloudinaryStore uploads objects to Cloudinary under folder
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore configures a store from a cloudinary:// URL
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, key string, data []byte, _ string) (Stored, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: path.Join(s.folder, key),
	})
	if err != nil {
		return Stored{}, err
	}
	if resp.Error.Message != "" {
		return Stored{}, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return Stored{PublicID: resp.PublicID, URL: resp.SecureURL}, nil
}

func extension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
