// Package storage 上传文件的存储（本地磁盘或内存，基于 afero）
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// FileStorage 文件存储协作者
type FileStorage interface {
	// Save 保存到 namespace 下的新文件，返回相对路径
	Save(ctx context.Context, namespace, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, relPath string) error
}

type aferoStorage struct {
	fs afero.Fs
}

// NewLocal 以 root 为根目录的磁盘存储
func NewLocal(root string) FileStorage {
	return &aferoStorage{fs: afero.NewBasePathFs(afero.NewOsFs(), root)}
}

// NewMemory 内存存储（测试用）
func NewMemory() FileStorage {
	return &aferoStorage{fs: afero.NewMemMapFs()}
}

// NewFs 包装任意 afero.Fs
func NewFs(fs afero.Fs) FileStorage {
	return &aferoStorage{fs: fs}
}

func (s *aferoStorage) Save(ctx context.Context, namespace, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	rel := path.Join(namespace, uuid.NewString()+ext)

	if err := s.fs.MkdirAll(namespace, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", namespace, err)
	}
	f, err := s.fs.Create(rel)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", rel, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(rel)
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", rel, err)
	}
	return rel, nil
}

func (s *aferoStorage) Delete(_ context.Context, relPath string) error {
	if relPath == "" {
		return nil
	}
	err := s.fs.Remove(relPath)
	if err != nil {
		if exists, _ := afero.Exists(s.fs, relPath); !exists {
			return nil
		}
	}
	return err
}
