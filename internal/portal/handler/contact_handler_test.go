package handler_test

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/itportal/internal/portal/service"
	"github.com/bitfantasy/itportal/internal/portal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactInquiryFlow(t *testing.T) {
	env := testutil.NewTestEnv()
	staff := testutil.GenerateTestToken(testutil.Staff.ExternalID)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/contact", map[string]string{
		"full_name": "Sam Ortiz",
		"email":     "not-an-email",
		"subject":   "Pricing",
		"message":   "Hello",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/contact", map[string]string{
		"full_name": "Sam Ortiz",
		"email":     "sam@example.com",
		"subject":   "Pricing",
		"message":   "How much is a network audit?",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/staff/contact?unread=true", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	assert.Len(t, data["items"], 1)

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/staff/contact/1/read", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/staff/contact/1", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, testutil.ParseResponse(w)["data"].(map[string]interface{})["is_read"])

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/staff/contact/42/read", nil, staff)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/staff/contact", nil,
		testutil.GenerateTestToken(testutil.Customer.ExternalID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, []string{service.ActionInquiryCreated, service.ActionInquiryRead}, env.Audit.Actions())
}

func TestContact_SignedInUserIsRecorded(t *testing.T) {
	env := testutil.NewTestEnv()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/contact", map[string]string{
		"full_name": "Dana Reyes",
		"email":     "dana@example.com",
		"subject":   "Follow-up",
		"message":   "Any update?",
	}, testutil.GenerateTestToken(testutil.Customer.ExternalID))
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestListServices(t *testing.T) {
	env := testutil.NewTestEnv()

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/services", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	items := testutil.ParseResponse(w)["data"].([]interface{})
	assert.Len(t, items, 3)
}
