package similarity

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMBID1 = "c5f4909e-1d7b-4f15-a6f6-1af376bc01c9"
	testMBID2 = "7f27d7a9-27f0-4663-9d20-2c9c40200e6d"
)

func requireAPIError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, msg, apiErr.Message)
}

func TestParseRecordingRefs(t *testing.T) {
	upper := strings.ToUpper(testMBID2)
	refs, err := ParseRecordingRefs(testMBID1+":3;"+upper+";"+testMBID1+":3", MaxRecordingsPerRequest)
	require.NoError(t, err)

	assert.Equal(t, []RecordingRef{
		{MBID: testMBID1, Offset: 3},
		{MBID: testMBID2, Offset: 0},
		{MBID: testMBID1, Offset: 3},
	}, refs, "order and duplicates are preserved, mbids are lowercased")
}

func TestParseRecordingRefsLenientOffset(t *testing.T) {
	for _, suffix := range []string{":abc", ":-4", ":", ":1.5"} {
		refs, err := ParseRecordingRefs(testMBID1+suffix, MaxRecordingsPerRequest)
		require.NoError(t, err, suffix)
		assert.Equal(t, 0, refs[0].Offset, suffix)
	}
}

func TestParseRecordingRefsMissing(t *testing.T) {
	_, err := ParseRecordingRefs("", MaxRecordingsPerRequest)
	requireAPIError(t, err, http.StatusBadRequest, "Missing recording_ids parameter")
}

func TestParseRecordingRefsTooMany(t *testing.T) {
	tokens := make([]string, 26)
	for i := range tokens {
		tokens[i] = "not-even-a-uuid"
	}
	_, err := ParseRecordingRefs(strings.Join(tokens, ";"), MaxRecordingsPerRequest)
	requireAPIError(t, err, http.StatusBadRequest, "More than 25 recordings not allowed per request")

	tokens = tokens[:25]
	for i := range tokens {
		tokens[i] = testMBID1
	}
	refs, err := ParseRecordingRefs(strings.Join(tokens, ";"), MaxRecordingsPerRequest)
	require.NoError(t, err)
	assert.Len(t, refs, 25)
}

func TestParseRecordingRefsInvalidMBID(t *testing.T) {
	_, err := ParseRecordingRefs(testMBID1+";nope", MaxRecordingsPerRequest)
	requireAPIError(t, err, http.StatusBadRequest, "'nope' is not a valid UUID")
}

func TestParseRecordingPair(t *testing.T) {
	a, b, err := ParseRecordingPair(testMBID1+":1;"+testMBID2, MaxRecordingsPerRequest)
	require.NoError(t, err)
	assert.Equal(t, RecordingRef{MBID: testMBID1, Offset: 1}, a)
	assert.Equal(t, RecordingRef{MBID: testMBID2}, b)

	for _, raw := range []string{testMBID1, testMBID1 + ";" + testMBID2 + ";" + testMBID1} {
		_, _, err := ParseRecordingPair(raw, MaxRecordingsPerRequest)
		requireAPIError(t, err, http.StatusBadRequest, "Does not contain 2 recordings in the request")
	}
}

func TestParseRecordingRef(t *testing.T) {
	ref, err := ParseRecordingRef(strings.ToUpper(testMBID1), "7")
	require.NoError(t, err)
	assert.Equal(t, RecordingRef{MBID: testMBID1, Offset: 7}, ref)

	ref, err = ParseRecordingRef(testMBID1, "")
	require.NoError(t, err)
	assert.Equal(t, 0, ref.Offset)
	assert.Equal(t, testMBID1+":0", ref.String())
	assert.Equal(t, "0", ref.OffsetKey())
}
