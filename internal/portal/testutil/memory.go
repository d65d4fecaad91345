package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/portal/repository"
)

// MemoryUsers 内存用户表
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

func NewMemoryUsers(users ...*entity.User) *MemoryUsers {
	m := &MemoryUsers{users: make(map[string]*entity.User)}
	for _, u := range users {
		m.Add(u)
	}
	return m
}

func (m *MemoryUsers) Add(u *entity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ExternalID] = u
}

func (m *MemoryUsers) FindByExternalID(ctx context.Context, externalID string) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[externalID]
	if !ok || !u.IsActive {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

// MemoryDocuments 内存附件表
type MemoryDocuments struct {
	mu     sync.RWMutex
	rows   []*entity.ServiceRequestDocument
	nextID int64
}

func (m *MemoryDocuments) CreateBatch(ctx context.Context, docs []*entity.ServiceRequestDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.nextID++
		d.DocumentID = m.nextID
		m.rows = append(m.rows, d)
	}
	return nil
}

func (m *MemoryDocuments) FindByID(ctx context.Context, requestID, documentID int64) (*entity.ServiceRequestDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.rows {
		if d.DocumentID == documentID && d.RequestID != nil && *d.RequestID == requestID {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

// byRequest 某请求的附件，对应仓储中的 Preload("Documents")
func (m *MemoryDocuments) byRequest(requestID int64) []entity.ServiceRequestDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entity.ServiceRequestDocument
	for _, d := range m.rows {
		if d.RequestID != nil && *d.RequestID == requestID {
			out = append(out, *d)
		}
	}
	return out
}

// MemoryRequests 内存服务请求表
type MemoryRequests struct {
	mu        sync.RWMutex
	rows      map[int64]*entity.ServiceRequest
	nextID    int64
	documents *MemoryDocuments
	services  *MemoryCatalog
}

func NewMemoryRequests(documents *MemoryDocuments, services *MemoryCatalog) *MemoryRequests {
	return &MemoryRequests{rows: make(map[int64]*entity.ServiceRequest), documents: documents, services: services}
}

func (m *MemoryRequests) Create(ctx context.Context, req *entity.ServiceRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.RequestID = m.nextID
	cp := *req
	m.rows[req.RequestID] = &cp
	return nil
}

func (m *MemoryRequests) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *MemoryRequests) FindByID(ctx context.Context, id int64) (*entity.ServiceRequest, error) {
	m.mu.RLock()
	r, ok := m.rows[id]
	var cp entity.ServiceRequest
	if ok {
		cp = *r
	}
	m.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.documents != nil {
		cp.Documents = m.documents.byRequest(id)
	}
	if m.services != nil {
		cp.Service = m.services.find(cp.ServiceID)
	}
	cp.Decorate()
	return &cp, nil
}

func (m *MemoryRequests) List(ctx context.Context, f repository.ServiceRequestFilter) ([]entity.ServiceRequest, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []entity.ServiceRequest
	for _, r := range m.rows {
		switch {
		case f.UserID != nil && r.UserID != *f.UserID,
			f.StatusID != nil && r.StatusID != *f.StatusID,
			f.ServiceID != nil && r.ServiceID != *f.ServiceID,
			f.Priority != nil && (r.Priority == nil || *r.Priority != *f.Priority),
			f.From != nil && r.RequestedDate.Before(*f.From),
			f.To != nil && r.RequestedDate.After(*f.To),
			f.Search != "" && !strings.Contains(strings.ToLower(string(r.RequestDetails)+r.Notes), strings.ToLower(f.Search)):
			continue
		}
		row := *r
		if m.services != nil {
			row.Service = m.services.find(row.ServiceID)
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].RequestedDate.Equal(matched[j].RequestedDate) {
			return matched[i].RequestID > matched[j].RequestID
		}
		return matched[i].RequestedDate.After(matched[j].RequestedDate)
	})

	total := int64(len(matched))
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *MemoryRequests) UpdateStatus(ctx context.Context, id int64, from int, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.StatusID != from {
		return repository.ErrStatusConflict
	}
	for k, v := range updates {
		switch k {
		case "status_id":
			r.StatusID = v.(int)
		case "approved_by":
			id := v.(int)
			r.ApprovedBy = &id
		case "approved_date":
			t := v.(time.Time)
			r.ApprovedDate = &t
		case "completion_date":
			t := v.(time.Time)
			r.CompletionDate = &t
		}
	}
	return nil
}

// Count 当前行数
func (m *MemoryRequests) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// MemoryAudit 内存审计日志
type MemoryAudit struct {
	mu   sync.RWMutex
	logs []entity.AuditLog
}

func (m *MemoryAudit) Create(ctx context.Context, log *entity.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.LogID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *log)
	return nil
}

// Actions 按写入顺序的动作
func (m *MemoryAudit) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Action
	}
	return out
}

// MemoryCatalog 内存服务目录
type MemoryCatalog struct {
	services []entity.Service
}

func NewMemoryCatalog(services ...entity.Service) *MemoryCatalog {
	return &MemoryCatalog{services: services}
}

func (m *MemoryCatalog) FindIDByName(ctx context.Context, name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range m.services {
		if strings.ToLower(strings.TrimSpace(s.Name)) == name {
			return s.ServiceID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (m *MemoryCatalog) ListActive(ctx context.Context) ([]entity.Service, error) {
	var out []entity.Service
	for _, s := range m.services {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryCatalog) find(id int) *entity.Service {
	for i := range m.services {
		if m.services[i].ServiceID == id {
			s := m.services[i]
			return &s
		}
	}
	return nil
}

// MemoryInquiries 内存联系咨询表
type MemoryInquiries struct {
	mu     sync.RWMutex
	rows   []*entity.ContactInquiry
	nextID int64
}

func (m *MemoryInquiries) Create(ctx context.Context, inquiry *entity.ContactInquiry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	inquiry.InquiryID = m.nextID
	m.rows = append(m.rows, inquiry)
	return nil
}

func (m *MemoryInquiries) FindByID(ctx context.Context, id int64) (*entity.ContactInquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rows {
		if r.InquiryID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemoryInquiries) List(ctx context.Context, page, pageSize int, unreadOnly bool) ([]entity.ContactInquiry, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entity.ContactInquiry
	for _, r := range m.rows {
		if unreadOnly && r.IsRead {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (m *MemoryInquiries) MarkAsRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.InquiryID == id {
			now := time.Now()
			r.IsRead = true
			r.ReadAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}
