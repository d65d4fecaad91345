package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/itportal/internal/portal/entity"
	"github.com/bitfantasy/itportal/internal/portal/intake"
	"github.com/bitfantasy/itportal/internal/portal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func networkRequest(files ...intake.Attachment) *intake.NetworkServiceRequest {
	return &intake.NetworkServiceRequest{
		ServiceID:           3,
		RequestType:         "New Connection",
		Priority:            "Medium",
		PrimaryContactName:  "Dana Reyes",
		PrimaryContactEmail: "dana@example.com",
		Department:          "Finance",
		Location:            "HQ",
		AdditionalDocuments: files,
	}
}

func submit(f *fixture, ctx context.Context, p intake.Payload) (int64, error) {
	return f.svc.CreateServiceRequest(ctx, SubmitInput{
		Payload:  p,
		Identity: Identity{ID: 7, ExternalID: "idp-user-1", DisplayName: "Dana Reyes"},
		Source:   RequestSource{IP: "192.0.2.10", UserAgent: "go-test"},
	})
}

func requireSubmitError(t *testing.T, err error, kind ErrorKind) *SubmitError {
	t.Helper()
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, kind, se.Kind)
	assert.NotEmpty(t, se.Message)
	return se
}

// 场景A：渗透测试，无附件
func TestCreateServiceRequest_PenTestingWithoutAttachments(t *testing.T) {
	f := newFixture()

	id, err := submit(f, context.Background(), &intake.PenTestingRequest{
		ServiceID:              1,
		CompanyName:            "Acme Ltd",
		PrimaryContactName:     "Sam Doe",
		PrimaryContactEmail:    "sam@acme.test",
		TestingType:            "web_application",
		TargetScope:            "app.acme.test and its API",
		AuthorizationConfirmed: true,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	assert.Equal(t, 1, f.requests.count())
	row, err := f.requests.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, row.ServiceID)
	assert.Equal(t, entity.StatusSubmitted, row.StatusID)
	assert.Equal(t, "submitted", row.StatusName)
	assert.Nil(t, row.Priority)

	var details map[string]interface{}
	require.NoError(t, row.RequestDetails.Decode(&details))
	assert.Equal(t, "Acme Ltd", details["CompanyName"])
	assert.Equal(t, true, details["AuthorizationConfirmed"])

	assert.Equal(t, 0, f.documents.count())
	assert.Equal(t, 0, f.store.callCount())
	assert.Equal(t, []string{ActionCreated}, f.audit.actions(entity.AuditEntityServiceRequest))
}

func TestCreateServiceRequest_WithoutAttachments(t *testing.T) {
	f := newFixture()
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	id, err := submit(f, context.Background(), networkRequest())
	require.NoError(t, err)
	assert.Positive(t, id)

	row, err := f.requests.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 7, row.UserID)
	assert.Equal(t, 3, row.ServiceID)
	assert.Equal(t, entity.StatusSubmitted, row.StatusID)
	assert.Equal(t, submittedNotes, row.Notes)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), row.RequestedDate)
	require.NotNil(t, row.Priority)
	assert.Equal(t, 2, *row.Priority)

	var details map[string]interface{}
	require.NoError(t, row.RequestDetails.Decode(&details))
	assert.Equal(t, "Finance", details["Department"])

	assert.Equal(t, 0, f.documents.count())
	assert.Empty(t, f.store.Keys())
	assert.Equal(t, []string{ActionCreated}, f.audit.actions(entity.AuditEntityServiceRequest))
}

// 场景B：移动应用两个附件全部成功
func TestCreateServiceRequest_WithAttachments(t *testing.T) {
	f := newFixture()
	notifier := &recordingNotifier{}
	f.svc.SetNotifier(notifier)

	id, err := submit(f, context.Background(), &intake.MobileWebAppRequest{
		ServiceID:           2,
		ProjectName:         "Field App",
		SupportingDocuments: []intake.Attachment{pdf("wireframes.pdf"), png("logo.png")},
	})
	require.NoError(t, err)

	require.Equal(t, 2, f.documents.count())
	for _, d := range f.documents.rows {
		require.NotNil(t, d.RequestID)
		assert.Equal(t, id, *d.RequestID)
		assert.True(t, strings.HasPrefix(d.FilePath, "user_7/"))
		assert.Contains(t, d.FilePath, "/"+strconv.FormatInt(id, 10)+"/")
		_, ok := f.store.Object(d.FilePath)
		assert.True(t, ok, "object %s should exist", d.FilePath)
	}
	assert.Len(t, f.store.Keys(), 2)
	assert.Equal(t, []string{ActionCreated}, f.audit.actions(entity.AuditEntityServiceRequest))
	assert.Equal(t, []string{"request_created"}, notifier.events)
}

// 场景C：校验失败
func TestCreateServiceRequest_ValidationFailed(t *testing.T) {
	f := newFixture()
	p := networkRequest(pdf("a.pdf"))
	p.Department = "   "

	id, err := submit(f, context.Background(), p)
	assert.Zero(t, id)
	se := requireSubmitError(t, err, KindValidationFailed)
	assert.Equal(t, "Department is required", se.Message)

	assert.Equal(t, 0, f.requests.count())
	assert.Equal(t, 0, f.store.callCount())
	assert.Equal(t, []string{ActionInvalidInput}, f.audit.actions(""))
}

// 第二个附件类型不合法，整批拒绝
func TestCreateServiceRequest_InvalidFileType(t *testing.T) {
	f := newFixture()

	id, err := submit(f, context.Background(),
		networkRequest(pdf("a.pdf"), intake.NewMemoryAttachment("tool.exe", []byte("MZ"))))
	assert.Zero(t, id)
	requireSubmitError(t, err, KindInvalidFileType)

	assert.Equal(t, 0, f.requests.count())
	assert.Empty(t, f.requests.inserted)
	assert.Empty(t, f.store.Keys())
	assert.Equal(t, []string{ActionFileUploadError}, f.audit.actions(entity.AuditEntityServiceRequest))
	assert.Equal(t, 1, f.audit.countAction(ActionInvalidFileType))
}

// 请求行插入失败
func TestCreateServiceRequest_InsertFailure(t *testing.T) {
	f := newFixture()
	f.requests.createErr = errors.New("connection reset")

	id, err := submit(f, context.Background(), networkRequest(pdf("a.pdf"), pdf("b.pdf")))
	assert.Zero(t, id)
	se := requireSubmitError(t, err, KindInsertError)
	assert.Equal(t, genericSubmitMessage, se.Message)
	assert.NotContains(t, se.Message, "connection reset")

	assert.Empty(t, f.store.Keys(), "uploaded objects are removed")
	assert.Equal(t, 0, f.requests.count())
	assert.Equal(t, 1, f.audit.countAction(ActionInsertError))
}

func TestCreateServiceRequest_RelocationFailureLeavesNothing(t *testing.T) {
	f := newFixture()
	f.store.failMoveAt = 1

	id, err := submit(f, context.Background(), networkRequest(pdf("a.pdf"), pdf("b.pdf")))
	assert.Zero(t, id)
	requireSubmitError(t, err, KindRelocationFailure)

	assert.Equal(t, 0, f.requests.count())
	require.Len(t, f.requests.inserted, 1)
	assert.Equal(t, f.requests.inserted, f.requests.deleted)
	assert.Empty(t, f.store.Keys())
	assert.Equal(t, 0, f.documents.count())
	assert.Equal(t, 1, f.audit.countAction(ActionRelocationFailure))
}

// 场景E：附件行插入失败
func TestCreateServiceRequest_DocumentInsertFailure(t *testing.T) {
	f := newFixture()
	f.documents.createErr = errors.New("fk violation")

	id, err := submit(f, context.Background(), networkRequest(pdf("a.pdf")))
	assert.Zero(t, id)
	requireSubmitError(t, err, KindDocumentInsertError)

	assert.Equal(t, 0, f.requests.count())
	assert.Empty(t, f.store.Keys(), "relocated objects are removed at their new path")
	assert.Equal(t, 1, f.audit.countAction(ActionDocumentInsertError))
}

func TestCreateServiceRequest_PayloadShape(t *testing.T) {
	f := newFixture()

	_, err := submit(f, context.Background(), nil)
	se := requireSubmitError(t, err, KindInvalidPayloadShape)
	assert.Equal(t, "Invalid request", se.Message)

	_, err = submit(f, context.Background(), unknownPayload{})
	requireSubmitError(t, err, KindInvalidPayloadShape)

	assert.Equal(t, 2, f.audit.countAction(ActionInvalidInput))
	assert.Equal(t, 0, f.requests.count())
}

// 场景D：附件超过该服务类型的大小上限
func TestCreateServiceRequest_UploadPolicyPerServiceType(t *testing.T) {
	f := newFixture()
	big := intake.NewMemoryAttachment("scope.pdf", []byte("%PDF-1.4\n"+strings.Repeat("x", 100)))

	id, err := submit(f, context.Background(), &intake.MobileWebAppRequest{
		ProjectName:         "Field App",
		SupportingDocuments: []intake.Attachment{big},
	})
	assert.Zero(t, id)
	requireSubmitError(t, err, KindFileSizeLimitExceeded)
	assert.Equal(t, 1, f.audit.countAction(string(KindFileSizeLimitExceeded)))
	assert.Empty(t, f.store.Keys())
	assert.Equal(t, 0, f.store.callCount())
	assert.Equal(t, 0, f.requests.count())
	assert.Empty(t, f.requests.inserted)

	_, err = submit(f, context.Background(), networkRequest(big))
	require.NoError(t, err)
}

func TestCreateServiceRequest_PanicIsContained(t *testing.T) {
	f := newFixture()
	f.svc.registry.Register(panickingHandler{})

	var (
		id  int64
		err error
	)
	require.NotPanics(t, func() {
		id, err = submit(f, context.Background(), &panickingPayload{files: []intake.Attachment{pdf("a.pdf")}})
	})
	assert.Zero(t, id)
	se := requireSubmitError(t, err, KindUnexpectedError)
	assert.Equal(t, genericSubmitMessage, se.Message)

	assert.Empty(t, f.store.Keys(), "attachments uploaded before the panic are removed")
	assert.Equal(t, 0, f.requests.count())
	require.Equal(t, 1, f.audit.countAction(ActionUnexpectedError))
	for _, l := range f.audit.logs {
		if l.Action == ActionUnexpectedError {
			var details map[string]interface{}
			require.NoError(t, l.Details.Decode(&details))
			assert.Contains(t, details["StackTrace"], "panickingHandler")
		}
	}
}

func TestCreateServiceRequest_MovePanicIsContained(t *testing.T) {
	f := newFixture()
	f.store.panicMove = true

	var (
		id  int64
		err error
	)
	require.NotPanics(t, func() {
		id, err = submit(f, context.Background(), networkRequest(pdf("a.pdf")))
	})
	assert.Zero(t, id)
	requireSubmitError(t, err, KindRelocationFailure)

	assert.Empty(t, f.store.Keys())
	assert.Equal(t, 0, f.requests.count())
	assert.Equal(t, f.requests.inserted, f.requests.deleted)
	assert.Equal(t, 0, f.documents.count())
	assert.Equal(t, 1, f.audit.countAction(ActionRelocationFailure))
}

func TestCreateServiceRequest_AttachmentPanicRemovesEarlierUploads(t *testing.T) {
	f := newFixture()

	var (
		id  int64
		err error
	)
	require.NotPanics(t, func() {
		id, err = submit(f, context.Background(), networkRequest(pdf("a.pdf"), explodingAttachment{name: "b.pdf"}))
	})
	assert.Zero(t, id)
	requireSubmitError(t, err, KindUnexpectedError)

	assert.Empty(t, f.store.Keys(), "objects written before the panic are removed")
	assert.Equal(t, 0, f.requests.count())
	assert.Equal(t, 1, f.audit.countAction(ActionUnexpectedError))
}

func TestCreateServiceRequest_TypedNilPayload(t *testing.T) {
	f := newFixture()

	for _, p := range []intake.Payload{(*intake.PenTestingRequest)(nil), (*intake.NetworkServiceRequest)(nil)} {
		id, err := submit(f, context.Background(), p)
		assert.Zero(t, id)
		se := requireSubmitError(t, err, KindInvalidPayloadShape)
		assert.Equal(t, "Invalid request", se.Message)
	}
	assert.Equal(t, 2, f.audit.countAction(ActionInvalidInput))
	assert.Equal(t, 0, f.requests.count())
}

func TestCreateServiceRequest_NotifierPanicKeepsRequest(t *testing.T) {
	f := newFixture()
	f.svc.SetNotifier(panickingNotifier{})

	var (
		id  int64
		err error
	)
	require.NotPanics(t, func() {
		id, err = submit(f, context.Background(), networkRequest(pdf("a.pdf")))
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	assert.Equal(t, 1, f.requests.count())
	assert.Len(t, f.store.Keys(), 1)
	assert.Equal(t, []string{ActionCreated}, f.audit.actions(entity.AuditEntityServiceRequest))
	assert.Zero(t, f.audit.countAction(ActionUnexpectedError))
}

func TestCreateServiceRequest_CancelledMidway(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.requests.onCreate = func(ctx context.Context) error {
		cancel()
		return nil
	}

	id, err := submit(f, ctx, networkRequest(pdf("a.pdf"), pdf("b.pdf")))
	assert.Zero(t, id)
	requireSubmitError(t, err, KindInsertError)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.Empty(t, f.store.Keys(), "compensation is not bound to the cancelled context")
	assert.Equal(t, 0, f.requests.count())
	assert.Equal(t, 1, f.audit.countAction(ActionInsertError), "audit is written after cancellation")
}

func TestCreateServiceRequest_AuditFailureDoesNotChangeResult(t *testing.T) {
	f := newFixture()
	f.audit.err = errors.New("audit table locked")

	id, err := submit(f, context.Background(), networkRequest(pdf("a.pdf")))
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, 1, f.documents.count())
}

func TestListRequests_CustomerScope(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mine, err := submit(f, ctx, networkRequest())
	require.NoError(t, err)
	_, err = f.svc.CreateServiceRequest(ctx, SubmitInput{Payload: networkRequest(), Identity: Identity{ID: 8}})
	require.NoError(t, err)

	items, total, err := f.svc.ListRequests(ctx, Viewer{Identity: Identity{ID: 7}}, repository.ServiceRequestFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, mine, items[0].RequestID)

	_, total, err = f.svc.ListRequests(ctx, Viewer{Identity: Identity{ID: 1}, Staff: true}, repository.ServiceRequestFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestGetRequest_Ownership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id, err := submit(f, ctx, networkRequest())
	require.NoError(t, err)

	req, err := f.svc.GetRequest(ctx, Viewer{Identity: Identity{ID: 7}}, id)
	require.NoError(t, err)
	assert.Equal(t, "submitted", req.StatusName)
	assert.Equal(t, "Medium", req.PriorityText)

	_, err = f.svc.GetRequest(ctx, Viewer{Identity: Identity{ID: 8}}, id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetRequest(ctx, Viewer{Identity: Identity{ID: 8}, Staff: true}, id)
	assert.NoError(t, err)

	_, err = f.svc.GetRequest(ctx, Viewer{Identity: Identity{ID: 7}}, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	f := newFixture()
	notifier := &recordingNotifier{}
	f.svc.SetNotifier(notifier)
	ctx := context.Background()
	staff := Identity{ID: 2, DisplayName: "Ops"}

	id, err := submit(f, ctx, networkRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, staff, id, entity.StatusCompleted, RequestSource{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	req, err := f.svc.UpdateStatus(ctx, staff, id, entity.StatusApproved, RequestSource{})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, req.StatusID)
	require.NotNil(t, req.ApprovedBy)
	assert.Equal(t, 2, *req.ApprovedBy)

	_, err = f.svc.UpdateStatus(ctx, staff, id, entity.StatusSubmitted, RequestSource{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, staff, id, entity.StatusInProgress, RequestSource{})
	require.NoError(t, err)

	assert.Equal(t, 2, f.audit.countAction(ActionStatusChanged))
	assert.Equal(t, []string{"request_created", "request_status", "request_status"}, notifier.events)
	assert.Equal(t, []int{7, 7, 7}, notifier.users)
}

func TestOpenDocument(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id, err := submit(f, ctx, networkRequest(pdf("a.pdf")))
	require.NoError(t, err)
	docID := f.documents.rows[0].DocumentID

	rc, doc, err := f.svc.OpenDocument(ctx, Viewer{Identity: Identity{ID: 7}}, id, docID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "%PDF"))
	assert.Equal(t, "a.pdf", doc.FileName)

	_, _, err = f.svc.OpenDocument(ctx, Viewer{Identity: Identity{ID: 8}}, id, docID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.svc.OpenDocument(ctx, Viewer{Identity: Identity{ID: 7}}, id, docID+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

type recordingNotifier struct {
	events []string
	users  []int
}

func (n *recordingNotifier) NotifyUser(userID int, event string, payload interface{}) {
	n.events = append(n.events, event)
	n.users = append(n.users, userID)
}

type panickingNotifier struct{}

func (panickingNotifier) NotifyUser(int, string, interface{}) {
	panic("hub closed")
}

type unknownPayload struct{}

func (unknownPayload) ServiceType() intake.ServiceType { return "hardware_loan" }

type panickingPayload struct {
	files []intake.Attachment
}

func (*panickingPayload) ServiceType() intake.ServiceType { return "panicking" }

// panickingHandler 上传附件后在写请求行前崩溃
type panickingHandler struct{}

func (panickingHandler) ServiceType() intake.ServiceType { return "panicking" }
func (panickingHandler) ServiceTypeName() string         { return "Panicking" }
func (panickingHandler) Validate(intake.Payload) (bool, string) {
	return true, ""
}
func (panickingHandler) ExtractDetails(intake.Payload) (intake.Details, error) {
	return intake.Details{}.Add("Name", "x"), nil
}
func (panickingHandler) GetAttachments(p intake.Payload) []intake.Attachment {
	return p.(*panickingPayload).files
}
func (panickingHandler) GetServiceID(intake.Payload) int { return 1 }
func (panickingHandler) Priority(intake.Payload) *int {
	panic("priority lookup failed")
}
