package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teamdraw/internal/testutil"
)

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{method, route, status})
}

func TestLoggingRecordsStatusAndSize(t *testing.T) {
	logger, buf := testutil.CaptureLogger()

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))

	out := buf.String()
	assert.Contains(t, out, `"status":201`)
	assert.Contains(t, out, `"size":5`)
	assert.Contains(t, out, `"path":"/api/v1/events"`)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &recordingObserver{}
	r := mux.NewRouter()
	r.Use(Metrics(observer))
	r.HandleFunc("/events/{eventId}/teams", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/abc/teams", nil))

	require.Len(t, observer.seen, 1)
	assert.Equal(t, observation{http.MethodGet, "/events/{eventId}/teams", http.StatusAccepted}, observer.seen[0])
}

func TestMetricsUnmatchedRoute(t *testing.T) {
	observer := &recordingObserver{}
	handler := Metrics(observer)(http.NotFoundHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, observer.seen, 1)
	assert.Equal(t, "unmatched", observer.seen[0].route)
	assert.Equal(t, http.StatusNotFound, observer.seen[0].status)
}

func TestRecoveryDefaultHandler(t *testing.T) {
	logger, buf := testutil.CaptureLogger()
	r := mux.NewRouter()
	r.Use(Recovery(logger, nil))
	r.HandleFunc("/events/{eventId}", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/abc", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), `"route":"/events/{eventId}"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestLoggingServerErrorsAtWarn(t *testing.T) {
	logger, buf := testutil.CaptureLogger()

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
