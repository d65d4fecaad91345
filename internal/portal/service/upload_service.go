package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bitfantasy/itportal/internal/config"
	"github.com/bitfantasy/itportal/internal/portal/intake"
	"github.com/bitfantasy/itportal/internal/shared/identity"
	"github.com/bitfantasy/itportal/internal/shared/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

const (
	uploadCacheControl = "3600"
	sniffLen           = 3072
)

// UploadedDocument 已写入对象存储、尚未落库的附件
type UploadedDocument struct {
	FileName    string
	Path        string
	ContentType string
	Size        int64
	RequestID   *int64
	UploadedAt  time.Time
}

// Owner 附件上传者
type Owner struct {
	UserID     int
	Credential string
	Source     RequestSource
}

// DocumentUploadService 附件批量上传、迁移与清理
type DocumentUploadService struct {
	store    storage.ObjectStore
	resolver identity.Resolver
	audit    *AuditService
	logger   *zap.Logger
}

func NewDocumentUploadService(store storage.ObjectStore, resolver identity.Resolver, audit *AuditService, logger *zap.Logger) *DocumentUploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentUploadService{store: store, resolver: resolver, audit: audit, logger: logger}
}

// UploadBatch 全部成功或全部不留：先校验整批，再逐个上传，任一失败删除已上传的对象
func (s *DocumentUploadService) UploadBatch(ctx context.Context, files []intake.Attachment, owner Owner, policy config.UploadPolicy) ([]*UploadedDocument, error) {
	candidates := make([]intake.Attachment, 0, len(files))
	for _, f := range files {
		if f != nil {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return []*UploadedDocument{}, nil
	}

	var (
		firstKind ErrorKind
		rejected  []string
	)
	for _, f := range candidates {
		kind, reason := checkFile(f, policy)
		if kind == "" {
			continue
		}
		if firstKind == "" {
			firstKind = kind
		}
		rejected = append(rejected, reason)
		s.record(ctx, owner, string(kind), map[string]interface{}{
			"FileName":     f.Filename(),
			"Size":         f.Size(),
			"ErrorMessage": reason,
		})
		getMetrics().uploadedFiles.WithLabelValues("rejected").Inc()
	}
	if firstKind != "" {
		s.summary(ctx, owner, len(candidates), 0, rejected)
		return nil, &UploadError{Kind: firstKind, Failures: rejected}
	}

	prefix := s.prefix(ctx, owner)
	uploaded := make([]*UploadedDocument, 0, len(candidates))
	// 上传途中panic时先删除已写入的对象，再交给上层处理
	defer func() {
		if r := recover(); r != nil {
			s.Cleanup(ctx, uploaded)
			panic(r)
		}
	}()
	var failures []string
	for _, f := range candidates {
		doc, err := s.uploadOne(ctx, f, prefix, owner)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.Filename(), err))
			break
		}
		uploaded = append(uploaded, doc)
	}

	if len(failures) > 0 {
		s.Cleanup(ctx, uploaded)
		s.summary(ctx, owner, len(candidates), 0, failures)
		return nil, &UploadError{Kind: KindPartialUploadFailure, Failures: failures}
	}

	s.summary(ctx, owner, len(candidates), len(uploaded), nil)
	return uploaded, nil
}

func (s *DocumentUploadService) uploadOne(ctx context.Context, f intake.Attachment, prefix string, owner Owner) (*UploadedDocument, error) {
	name := cleanFileName(f.Filename())
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), strings.ToLower(path.Ext(name)))

	s.record(ctx, owner, ActionFileUploadStarted, map[string]interface{}{
		"FileName": name,
		"Size":     f.Size(),
		"Key":      key,
	})

	fail := func(err error) (*UploadedDocument, error) {
		s.logger.Warn("attachment upload failed", zap.String("file", name), zap.String("key", key), zap.Error(err))
		s.record(ctx, owner, ActionFileUploadError, map[string]interface{}{
			"FileName":     name,
			"Key":          key,
			"ErrorMessage": err.Error(),
		})
		getMetrics().uploadedFiles.WithLabelValues("failed").Inc()
		return nil, err
	}

	rc, err := f.Open()
	if err != nil {
		return fail(fmt.Errorf("open file: %w", err))
	}
	defer rc.Close()

	// 读取头部探测类型，再拼回完整内容
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fail(fmt.Errorf("read file: %w", err))
	}
	head = head[:n]
	contentType := mimetype.Detect(head).String()
	body := io.MultiReader(bytes.NewReader(head), rc)

	if _, err := s.store.Put(ctx, key, body, f.Size(), storage.PutOptions{
		ContentType:  contentType,
		CacheControl: uploadCacheControl,
		Overwrite:    false,
	}); err != nil {
		return fail(err)
	}

	s.record(ctx, owner, ActionFileUploadCompleted, map[string]interface{}{
		"FileName":    name,
		"Key":         key,
		"ContentType": contentType,
	})
	getMetrics().uploadedFiles.WithLabelValues("uploaded").Inc()

	return &UploadedDocument{
		FileName:    name,
		Path:        key,
		ContentType: contentType,
		Size:        f.Size(),
		UploadedAt:  time.Now(),
	}, nil
}

// Relocate 把对象从 {prefix}/{name} 移到 {prefix}/{requestID}/{name}，任一失败即整体失败
func (s *DocumentUploadService) Relocate(ctx context.Context, docs []*UploadedDocument, requestID int64) error {
	if len(docs) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		failures []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range docs {
		g.Go(func() (err error) {
			target := relocatedKey(d.Path, requestID)
			defer func() {
				if r := recover(); r != nil {
					err = panicError{value: r, stack: debug.Stack()}
					mu.Lock()
					failures = append(failures, fmt.Sprintf("%s: %v", d.FileName, err))
					mu.Unlock()
				}
			}()
			if err := s.store.Move(gctx, d.Path, target); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", d.FileName, err))
				mu.Unlock()
				return err
			}
			id := requestID
			d.Path = target
			d.RequestID = &id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("relocation failed", zap.Int64("request_id", requestID), zap.Strings("failures", failures))
		return &UploadError{Kind: KindRelocationFailure, Failures: failures, Err: err}
	}
	return nil
}

// Cleanup 并行删除附件当前所在的对象，失败只记日志
func (s *DocumentUploadService) Cleanup(ctx context.Context, docs []*UploadedDocument) {
	if len(docs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, d := range docs {
		if d == nil {
			continue
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("cleanup panicked", zap.String("key", key), zap.Any("panic", r))
				}
			}()
			if err := s.store.Delete(ctx, key); err != nil {
				s.logger.Warn("failed to delete uploaded object", zap.String("key", key), zap.Error(err))
			}
		}(d.Path)
	}
	wg.Wait()
}

// prefix 凭证可解析时用身份提供方的用户标识，否则 user_{id}
func (s *DocumentUploadService) prefix(ctx context.Context, owner Owner) string {
	if owner.Credential != "" && s.resolver != nil {
		sub, err := s.resolver.Resolve(ctx, owner.Credential)
		if err == nil && sub != "" {
			return strings.ReplaceAll(sub, "/", "_")
		}
		s.logger.Warn("credential not resolvable, using fallback prefix",
			zap.Int("user_id", owner.UserID), zap.Error(err))
	}
	return fmt.Sprintf("user_%d", owner.UserID)
}

func (s *DocumentUploadService) record(ctx context.Context, owner Owner, action string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		ActorID:    owner.UserID,
		Action:     action,
		EntityType: auditEntityDocument,
		Details:    details,
		Source:     owner.Source,
	})
}

func (s *DocumentUploadService) summary(ctx context.Context, owner Owner, total, uploaded int, failures []string) {
	s.record(ctx, owner, ActionFileUploadSummary, map[string]interface{}{
		"TotalFiles": total,
		"Uploaded":   uploaded,
		"Failed":     len(failures),
		"Failures":   failures,
	})
}

// checkFile 返回违规类别及原因，合规时类别为空
func checkFile(f intake.Attachment, policy config.UploadPolicy) (ErrorKind, string) {
	name := cleanFileName(f.Filename())
	if name == "" || name == "." || f.Size() <= 0 {
		return KindInvalidFile, fmt.Sprintf("%s: file is empty or has no name", f.Filename())
	}
	ext := strings.ToLower(path.Ext(name))
	if ext == "" || !policy.Allows(ext) {
		return KindInvalidFileType, fmt.Sprintf("%s: file type %q is not allowed", name, ext)
	}
	if policy.MaxFileSizeBytes > 0 && f.Size() > policy.MaxFileSizeBytes {
		return KindFileSizeLimitExceeded, fmt.Sprintf("%s: file exceeds the %s limit", name, formatSize(policy.MaxFileSizeBytes))
	}
	return "", ""
}

// cleanFileName 去掉客户端路径并做NFC规范化
func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "/" {
		return ""
	}
	return norm.NFC.String(name)
}

func relocatedKey(key string, requestID int64) string {
	dir, name := path.Split(key)
	return fmt.Sprintf("%s%d/%s", dir, requestID, name)
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
