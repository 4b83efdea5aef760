package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMBID1 = "c5f4909e-1d7b-4f15-a6f6-1af376bc01c9"
	testMBID2 = "7f27d7a9-27f0-4663-9d20-2c9c40200e6d"
)

type fakeService struct {
	similar  func(ctx context.Context, metric string, params similarity.Params) (similarity.ResultSet, error)
	toRef    func(ctx context.Context, metric string, ref similarity.RecordingRef, params similarity.Params) ([]similarity.NeighborResult, error)
	between  func(ctx context.Context, metric string, params similarity.Params) (map[string]float64, error)
	lastRef  similarity.RecordingRef
	lastCall string
}

func (f *fakeService) SimilarRecordings(ctx context.Context, metric string, params similarity.Params) (similarity.ResultSet, error) {
	f.lastCall = "similar:" + metric
	return f.similar(ctx, metric, params)
}

func (f *fakeService) SimilarToRecording(ctx context.Context, metric string, ref similarity.RecordingRef, params similarity.Params) ([]similarity.NeighborResult, error) {
	f.lastCall = "single:" + metric
	f.lastRef = ref
	return f.toRef(ctx, metric, ref, params)
}

func (f *fakeService) SimilarityBetween(ctx context.Context, metric string, params similarity.Params) (map[string]float64, error) {
	f.lastCall = "between:" + metric
	return f.between(ctx, metric, params)
}

type fakeLister []similarity.IndexIdentity

func (f fakeLister) Loaded() []similarity.IndexIdentity { return f }

func newTestServer(svc similarity.Service, indices indexLister) http.Handler {
	s := NewServer(svc, indices, &ServerConfig{
		AllowedOrigins: []string{"*"},
		RequestTimeout: time.Second,
	})
	s.log = nopLogger{}
	return s.setupRoutes()
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(&fakeService{}, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestListMetrics(t *testing.T) {
	loaded := fakeLister{{Metric: similarity.MetricMFCCs, NTrees: 10, DistanceType: similarity.DistanceAngular}}
	rec := get(t, newTestServer(&fakeService{}, loaded), "/api/v1/similarity/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body MetricsListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Metrics, "mfccs")
	assert.Contains(t, body.Metrics, "tzanetakis")
	assert.Equal(t, []string{"angular", "euclidean", "manhattan", "hamming"}, body.DistanceTypes)
	assert.Equal(t, []string{"mfccs_angular_10"}, body.Loaded)
}

func TestSimilarRecordingsRoute(t *testing.T) {
	svc := &fakeService{similar: func(_ context.Context, metric string, params similarity.Params) (similarity.ResultSet, error) {
		assert.Equal(t, testMBID1+":1", params.Get(similarity.ParamRecordingIDs))
		assert.Equal(t, "all", params.Get(similarity.ParamRemoveDups))
		return similarity.ResultSet{
			testMBID1: {"1": {{RecordingMBID: testMBID2, Offset: 0, Distance: 0.5}}},
		}, nil
	}}
	rec := get(t, newTestServer(svc, nil), "/api/v1/similarity/mfccs/?recording_ids="+testMBID1+":1&remove_dups=all")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "similar:mfccs", svc.lastCall)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"`+testMBID1+`": {"1": [{"recording_mbid": "`+testMBID2+`", "offset": 0, "distance": 0.5}]}}`, rec.Body.String())
}

func TestSimilarRecordingsBadRequest(t *testing.T) {
	svc := &fakeService{similar: func(context.Context, string, similarity.Params) (similarity.ResultSet, error) {
		return nil, similarity.BadRequest(similarity.MsgMissingRecordingIDs)
	}}
	rec := get(t, newTestServer(svc, nil), "/api/v1/similarity/mfccs/")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing recording_ids parameter", decodeMessage(t, rec))
}

func TestInternalErrorsAreHidden(t *testing.T) {
	svc := &fakeService{similar: func(context.Context, string, similarity.Params) (similarity.ResultSet, error) {
		return nil, errors.New("graph file truncated at byte 812")
	}}
	rec := get(t, newTestServer(svc, nil), "/api/v1/similarity/mfccs/?recording_ids="+testMBID1)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgInternalError, decodeMessage(t, rec))
}

func TestRequestTimeout(t *testing.T) {
	svc := &fakeService{similar: func(ctx context.Context, _ string, _ similarity.Params) (similarity.ResultSet, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "api requests carry a deadline")
		return nil, context.DeadlineExceeded
	}}
	rec := get(t, newTestServer(svc, nil), "/api/v1/similarity/mfccs/?recording_ids="+testMBID1)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, MsgRequestTimeout, decodeMessage(t, rec))
}

func TestSimilarityBetweenRoute(t *testing.T) {
	svc := &fakeService{between: func(_ context.Context, _ string, params similarity.Params) (map[string]float64, error) {
		assert.Equal(t, testMBID1+";"+testMBID2, params.Get(similarity.ParamRecordingIDs))
		return map[string]float64{}, nil
	}}
	rec := get(t, newTestServer(svc, nil), "/api/v1/similarity/bpm/between/?recording_ids="+testMBID1+";"+testMBID2)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "between:bpm", svc.lastCall)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestSimilarToRecordingRoute(t *testing.T) {
	svc := &fakeService{toRef: func(context.Context, string, similarity.RecordingRef, similarity.Params) ([]similarity.NeighborResult, error) {
		return []similarity.NeighborResult{{RecordingMBID: testMBID1, Offset: 2, Distance: 0}}, nil
	}}
	h := newTestServer(svc, nil)

	rec := get(t, h, "/api/v1/similarity/key/"+testMBID1+"?n=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "single:key", svc.lastCall)
	assert.Equal(t, similarity.RecordingRef{MBID: testMBID1, Offset: 2}, svc.lastRef)
	assert.JSONEq(t, `[{"recording_mbid": "`+testMBID1+`", "offset": 2, "distance": 0}]`, rec.Body.String())

	svc.toRef = func(context.Context, string, similarity.RecordingRef, similarity.Params) ([]similarity.NeighborResult, error) {
		return nil, similarity.NotFound(similarity.MsgNotInIndex)
	}
	rec = get(t, h, "/api/v1/similarity/key/"+testMBID2)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, similarity.MsgNotInIndex, decodeMessage(t, rec))
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(&fakeService{}, nil)

	for _, target := range []string{"/nope", "/api/v1/similarity/mfccs/not-a-uuid", "/api/v2/similarity/"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, MsgRouteNotFound, decodeMessage(t, rec), target)
	}
}

func TestCORSHeaders(t *testing.T) {
	h := newTestServer(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", getClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.1")
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}

func TestQueryParamsKeepSemicolons(t *testing.T) {
	params := queryParams("recording_ids=" + testMBID1 + ";" + testMBID2 + "%3B" + testMBID1 + "&n_neighbours=5&flag&threshold=0.5%25")

	assert.Equal(t, testMBID1+";"+testMBID2+";"+testMBID1, params.Get(similarity.ParamRecordingIDs))
	assert.Equal(t, "5", params.Get(similarity.ParamNNeighbours))
	assert.Equal(t, "0.5%", params.Get(similarity.ParamThreshold))
	assert.Equal(t, "", params.Get("flag"))
	assert.Contains(t, params, "flag")
}
