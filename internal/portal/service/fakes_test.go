package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/bitfantasy/itportal/internal/config"
	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/portal/intake"
	"github.com/bitfantasy/itportal/internal/portal/repository"
	"github.com/bitfantasy/itportal/internal/shared/identity"
	"github.com/bitfantasy/itportal/internal/shared/storage"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected failure")

// fakeRequestStore 记录插入与删除的请求行存储
type fakeRequestStore struct {
	mu        sync.Mutex
	rows      map[int64]*entity.ServiceRequest
	nextID    int64
	inserted  []int64
	deleted   []int64
	createErr error
	onCreate  func(ctx context.Context) error
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{rows: make(map[int64]*entity.ServiceRequest), nextID: 100}
}

func (f *fakeRequestStore) Create(ctx context.Context, req *entity.ServiceRequest) error {
	if f.onCreate != nil {
		if err := f.onCreate(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	req.RequestID = f.nextID
	cp := *req
	f.rows[req.RequestID] = &cp
	f.inserted = append(f.inserted, req.RequestID)
	return nil
}

func (f *fakeRequestStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRequestStore) FindByID(ctx context.Context, id int64) (*entity.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	cp.Decorate()
	return &cp, nil
}

func (f *fakeRequestStore) List(ctx context.Context, filter repository.ServiceRequestFilter) ([]entity.ServiceRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, r := range f.rows {
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if filter.StatusID != nil && r.StatusID != *filter.StatusID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := int64(len(ids))
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(ids) {
		start = len(ids)
	}
	end := start + size
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]entity.ServiceRequest, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, *f.rows[id])
	}
	return out, total, nil
}

func (f *fakeRequestStore) UpdateStatus(ctx context.Context, id int64, from int, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.StatusID != from {
		return repository.ErrStatusConflict
	}
	if v, ok := updates["status_id"].(int); ok {
		r.StatusID = v
	}
	if v, ok := updates["approved_by"].(int); ok {
		r.ApprovedBy = &v
	}
	return nil
}

func (f *fakeRequestStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeDocumentStore 附件行存储
type fakeDocumentStore struct {
	mu        sync.Mutex
	rows      []*entity.ServiceRequestDocument
	nextID    int64
	createErr error
}

func (f *fakeDocumentStore) CreateBatch(ctx context.Context, docs []*entity.ServiceRequestDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, d := range docs {
		f.nextID++
		d.DocumentID = f.nextID
		f.rows = append(f.rows, d)
	}
	return nil
}

func (f *fakeDocumentStore) FindByID(ctx context.Context, requestID, documentID int64) (*entity.ServiceRequestDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.DocumentID == documentID && d.RequestID != nil && *d.RequestID == requestID {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDocumentStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeAuditStore 内存审计日志
type fakeAuditStore struct {
	mu   sync.Mutex
	logs []*entity.AuditLog
	err  error
}

func (f *fakeAuditStore) Create(ctx context.Context, log *entity.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

// actions 按实体类型过滤的动作列表，entityType 为空表示全部
func (f *fakeAuditStore) actions(entityType string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, l := range f.logs {
		if entityType == "" || l.EntityType == entityType {
			out = append(out, l.Action)
		}
	}
	return out
}

func (f *fakeAuditStore) countAction(action string) int {
	n := 0
	for _, a := range f.actions("") {
		if a == action {
			n++
		}
	}
	return n
}

// flakyStore 可注入失败的对象存储
type flakyStore struct {
	*storage.MemoryStore

	mu         sync.Mutex
	puts       int
	failPutAt  int
	moves      int
	failMoveAt int
	failDelete bool
	panicMove  bool
	calls      int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *flakyStore) Put(ctx context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) (string, error) {
	s.mu.Lock()
	s.calls++
	s.puts++
	n := s.puts
	s.mu.Unlock()
	if s.failPutAt > 0 && n == s.failPutAt {
		return "", errInjected
	}
	return s.MemoryStore.Put(ctx, key, r, size, opts)
}

func (s *flakyStore) Move(ctx context.Context, from, to string) error {
	s.mu.Lock()
	s.calls++
	s.moves++
	n := s.moves
	s.mu.Unlock()
	if s.panicMove {
		panic("move exploded")
	}
	if s.failMoveAt > 0 && n == s.failMoveAt {
		return errInjected
	}
	return s.MemoryStore.Move(ctx, from, to)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failDelete {
		return errInjected
	}
	return s.MemoryStore.Delete(ctx, key)
}

func (s *flakyStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeResolver 凭证到外部用户标识的映射
type fakeResolver map[string]string

func (r fakeResolver) Resolve(ctx context.Context, credential string) (string, error) {
	if sub, ok := r[credential]; ok {
		return sub, nil
	}
	return "", identity.ErrInvalidOrExpiredCredential
}

// explodingAttachment 打开时panic的附件
type explodingAttachment struct{ name string }

func (a explodingAttachment) Filename() string { return a.name }
func (a explodingAttachment) Size() int64      { return 128 }
func (a explodingAttachment) Open() (io.ReadCloser, error) {
	panic("attachment stream exploded")
}

func testPolicy() config.UploadPolicy {
	return config.UploadPolicy{
		MaxFileSizeBytes:  10 * 1024 * 1024,
		AllowedExtensions: config.DefaultAllowedExtensions,
	}
}

func pdf(name string) intake.Attachment {
	return intake.NewMemoryAttachment(name, []byte("%PDF-1.4\n%test document\n"))
}

func png(name string) intake.Attachment {
	return intake.NewMemoryAttachment(name, []byte("\x89PNG\r\n\x1a\n0000IHDR"))
}

type fixture struct {
	requests  *fakeRequestStore
	documents *fakeDocumentStore
	audit     *fakeAuditStore
	store     *flakyStore
	uploader  *DocumentUploadService
	svc       *ServiceRequestService
}

func newFixture() *fixture {
	f := &fixture{
		requests:  newFakeRequestStore(),
		documents: &fakeDocumentStore{},
		audit:     &fakeAuditStore{},
		store:     newFlakyStore(),
	}
	logger := zap.NewNop()
	audit := NewAuditService(f.audit, logger)
	f.uploader = NewDocumentUploadService(f.store, fakeResolver{"good-token": "idp-user-1"}, audit, logger)
	f.svc = NewServiceRequestService(
		intake.NewRegistry(),
		f.requests,
		f.documents,
		f.uploader,
		f.store,
		audit,
		config.UploadConfig{
			General: testPolicy(),
			Overrides: map[string]config.UploadPolicy{
				"mobile_web_app": {MaxFileSizeBytes: 64},
			},
		},
		logger,
	)
	return f
}
