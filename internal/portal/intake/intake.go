// Package intake 把各类服务申请表单归一为统一的请求明细、附件列表与服务ID。
package intake

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"reflect"
)

// ErrInvalidPayloadShape 处理器收到了不属于自己的表单
var ErrInvalidPayloadShape = errors.New("invalid payload shape")

// ServiceType 服务类型
type ServiceType string

const (
	ServiceTypePenTesting     ServiceType = "pen_testing"
	ServiceTypeMobileWebApp   ServiceType = "mobile_web_app"
	ServiceTypeNetworkService ServiceType = "network_service"
)

// Payload 服务申请表单
type Payload interface {
	ServiceType() ServiceType
}

// Handler 单一服务类型的表单处理器
type Handler interface {
	ServiceType() ServiceType
	ServiceTypeName() string
	Validate(p Payload) (bool, string)
	ExtractDetails(p Payload) (Details, error)
	GetAttachments(p Payload) []Attachment
	GetServiceID(p Payload) int
}

// Prioritizer 可从表单推导请求优先级的处理器
type Prioritizer interface {
	Priority(p Payload) *int
}

// Registry 服务类型到处理器的静态映射
type Registry struct {
	handlers map[ServiceType]Handler
}

// NewRegistry 注册全部内置处理器
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[ServiceType]Handler)}
	r.Register(PenTestingHandler{})
	r.Register(MobileWebAppHandler{})
	r.Register(NetworkServiceHandler{})
	return r
}

// Register 注册或替换处理器，仅在启动阶段调用
func (r *Registry) Register(h Handler) {
	r.handlers[h.ServiceType()] = h
}

// Resolve 查找表单对应的处理器
func (r *Registry) Resolve(p Payload) (Handler, bool) {
	if IsMissing(p) {
		return nil, false
	}
	h, ok := r.handlers[p.ServiceType()]
	return h, ok
}

// IsMissing 表单为空，包括带类型的空指针
func IsMissing(p Payload) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Attachment 待上传的附件
type Attachment interface {
	Filename() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type fileHeaderAttachment struct {
	fh *multipart.FileHeader
}

func (a fileHeaderAttachment) Filename() string { return a.fh.Filename }
func (a fileHeaderAttachment) Size() int64      { return a.fh.Size }

func (a fileHeaderAttachment) Open() (io.ReadCloser, error) {
	return a.fh.Open()
}

// FromFileHeaders 包装multipart上传的文件
func FromFileHeaders(headers []*multipart.FileHeader) []Attachment {
	out := make([]Attachment, 0, len(headers))
	for _, fh := range headers {
		if fh == nil {
			continue
		}
		out = append(out, fileHeaderAttachment{fh: fh})
	}
	return out
}

type memoryAttachment struct {
	name string
	data []byte
}

// NewMemoryAttachment 内存中的附件
func NewMemoryAttachment(name string, data []byte) Attachment {
	return memoryAttachment{name: name, data: data}
}

func (a memoryAttachment) Filename() string { return a.name }
func (a memoryAttachment) Size() int64      { return int64(len(a.data)) }

func (a memoryAttachment) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.data)), nil
}

func compact(list []Attachment) []Attachment {
	out := make([]Attachment, 0, len(list))
	for _, a := range list {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}
