package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/dispatcher"
	"alarm-relay/internal/models"
	"alarm-relay/internal/testutil"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event models.AlarmEvent) bool {
	args := m.Called(ctx, event)
	return args.Bool(0)
}

func (m *MockDispatcher) Loaded() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

type stubHealth struct {
	err error
}

func (s stubHealth) Health() error { return s.err }

func newRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/alarms", h.HandleAlarm).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	return router
}

func post(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/alarms", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleAlarm_Accepted(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Loaded").Return([]string{"bosmon", "divera"})
	var dispatchedID string
	d.On("Dispatch", mock.MatchedBy(func(ctx context.Context) bool {
		dispatchedID, _ = dispatcher.EventID(ctx)
		return dispatchedID != ""
	}), mock.MatchedBy(func(e models.AlarmEvent) bool {
		return e.Kind == models.KindPOC && e.RIC == "1234567" && e.Function == "2" && !e.Timestamp.IsZero()
	})).Return(true).Once()

	h := New(d, WithLogger(testutil.NewRecordingLogger()))
	rr := post(newRouter(h), `{"type":"poc","ric":"1234567","function":"2","msg":"Fire"}`)
	h.Wait()

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "POC", body["type"])
	assert.Equal(t, []interface{}{"bosmon", "divera"}, body["adapters"])
	assert.Equal(t, dispatchedID, body["event_id"])
	d.AssertExpectations(t)
}

func TestHandleAlarm_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"type":`, "invalid JSON body"},
		{"unknown kind", `{"type":"TETRA"}`, "invalid alarm kind TETRA"},
		{"missing kind", `{"ric":"1234567"}`, "invalid alarm kind"},
		{"long function", `{"type":"POC","ric":"1","function":"12"}`, "function must be at most 1 characters long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(MockDispatcher)
			logger := testutil.NewRecordingLogger()
			h := New(d, WithLogger(logger))

			rr := post(newRouter(h), tt.body)
			h.Wait()

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.message)
			assert.True(t, logger.Has(logging.WarnLevel, "Rejected alarm"))
			d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleAlarm_KeepsTimestamp(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Loaded").Return([]string{})
	d.On("Dispatch", mock.Anything, mock.MatchedBy(func(e models.AlarmEvent) bool {
		return e.Timestamp.Equal(testutil.FixedTime)
	})).Return(true).Once()

	h := New(d, WithLogger(testutil.NewRecordingLogger()))
	payload, err := json.Marshal(testutil.ZVEIEvent())
	require.NoError(t, err)

	rr := post(newRouter(h), string(payload))
	h.Wait()

	assert.Equal(t, http.StatusAccepted, rr.Code)
	d.AssertExpectations(t)
}

func TestHandleAlarm_MethodNotAllowed(t *testing.T) {
	h := New(new(MockDispatcher), WithLogger(testutil.NewRecordingLogger()))
	req := httptest.NewRequest(http.MethodGet, "/api/alarms", nil)
	rr := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthCheck(t *testing.T) {
	t.Run("Adapters", func(t *testing.T) {
		d := new(MockDispatcher)
		d.On("Loaded").Return([]string{"fcm"})
		h := New(d, WithLogger(testutil.NewRecordingLogger()))

		rr := httptest.NewRecorder()
		newRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, []interface{}{"fcm"}, body["adapters"])
		assert.NotContains(t, body, "redis_status")
	})

	t.Run("RedisHealthy", func(t *testing.T) {
		d := new(MockDispatcher)
		d.On("Loaded").Return([]string{})
		h := New(d, WithRedis(stubHealth{}), WithLogger(testutil.NewRecordingLogger()))

		rr := httptest.NewRecorder()
		newRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "healthy", body["redis_status"])
	})

	t.Run("RedisDown", func(t *testing.T) {
		d := new(MockDispatcher)
		d.On("Loaded").Return([]string{})
		h := New(d, WithRedis(stubHealth{err: fmt.Errorf("dial tcp: connection refused")}), WithLogger(testutil.NewRecordingLogger()))

		rr := httptest.NewRecorder()
		newRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unhealthy", body["redis_status"])
		assert.Contains(t, body["redis_error"], "connection refused")
	})
}
