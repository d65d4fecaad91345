package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
)

// PutOptions 上传参数
type PutOptions struct {
	ContentType  string
	CacheControl string
	// Overwrite 为 false 时目标键已存在则拒绝写入
	Overwrite bool
}

// ObjectStore 对象存储
type ObjectStore interface {
	// Put 写入对象，返回最终键
	Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (string, error)
	// Move 将对象移动到新键
	Move(ctx context.Context, from, to string) error
	// Delete 删除对象，键不存在不报错
	Delete(ctx context.Context, key string) error
	// Get 读取对象
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
