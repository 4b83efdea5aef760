package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMBID1 = "c5f4909e-1d7b-4f15-a6f6-1af376bc01c9"
	testMBID2 = "7f27d7a9-27f0-4663-9d20-2c9c40200e6d"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_similarity.sqlite3")
	t.Setenv("SIMILARITY_DB_PATH", dbPath)

	client, err := NewDBClient()
	require.NoError(t, err, "creating test DB client")
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	require.NotNil(t, client.DB)
	require.NotNil(t, client.db)

	_, err := os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestNewDBClientWithCustomPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(customPath)
	assert.NoError(t, err, "database file should exist at custom path")
}

func TestAddSubmissionAssignsOffsets(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	off0, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {1, 2, 3}})
	require.NoError(t, err)
	off1, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {4, 5, 6}})
	require.NoError(t, err)
	other, err := client.AddSubmission(ctx, testMBID2, map[string][]float32{"mfccs": {7, 8, 9}})
	require.NoError(t, err)

	assert.Equal(t, 0, off0)
	assert.Equal(t, 1, off1)
	assert.Equal(t, 0, other, "offsets are numbered per recording")

	count, err := client.CountSubmissions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestAddSubmissionRequiresFeatures(t *testing.T) {
	client, _ := setupTestDB(t)

	_, err := client.AddSubmission(context.Background(), testMBID1, nil)
	assert.Error(t, err)
}

func TestHasSubmission(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{"bpm": {120}})
	require.NoError(t, err)

	ok, err := client.HasSubmission(ctx, testMBID1, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.HasSubmission(ctx, testMBID1, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.HasSubmission(ctx, testMBID2, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetVector(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{
		"mfccs": {0.5, -1.25, 3},
		"bpm":   {128},
	})
	require.NoError(t, err)

	vec, err := client.GetVector(ctx, testMBID1, 0, "mfccs")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1.25, 3}, vec)

	_, err = client.GetVector(ctx, testMBID1, 0, "gfccs")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = client.GetVector(ctx, testMBID2, 0, "mfccs")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestEachVector(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {1, 0}, "bpm": {90}})
	require.NoError(t, err)
	_, err = client.AddSubmission(ctx, testMBID2, map[string][]float32{"mfccs": {0, 1}})
	require.NoError(t, err)
	_, err = client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {1, 1}})
	require.NoError(t, err)

	var got []StoredVector
	err = client.EachVector(ctx, "mfccs", func(v StoredVector) error {
		got = append(got, v)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []StoredVector{
		{MBID: testMBID1, Offset: 0, Vector: []float32{1, 0}},
		{MBID: testMBID2, Offset: 0, Vector: []float32{0, 1}},
		{MBID: testMBID1, Offset: 1, Vector: []float32{1, 1}},
	}, got)
}

func TestListMetrics(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {1}, "bpm": {90}})
	require.NoError(t, err)
	_, err = client.AddSubmission(ctx, testMBID2, map[string][]float32{"mfccs": {2}})
	require.NoError(t, err)

	metrics, err := client.ListMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bpm", "mfccs"}, metrics)
}

func TestDeleteRecording(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {1}, "bpm": {90}})
	require.NoError(t, err)
	_, err = client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {2}})
	require.NoError(t, err)
	_, err = client.AddSubmission(ctx, testMBID2, map[string][]float32{"mfccs": {3}})
	require.NoError(t, err)

	require.NoError(t, client.DeleteRecording(ctx, testMBID1))

	ok, err := client.HasSubmission(ctx, testMBID1, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	var vectors int64
	client.DB.Model(&FeatureVector{}).Count(&vectors)
	assert.EqualValues(t, 1, vectors, "only the other recording's vector remains")

	assert.NoError(t, client.DeleteRecording(ctx, testMBID1), "deleting twice is a no-op")
}

func TestClose(t *testing.T) {
	client, err := NewDBClientWithPath(filepath.Join(t.TempDir(), "close_test.sqlite3"))
	require.NoError(t, err)

	assert.NoError(t, client.Close())
}

func TestNilClientMethods(t *testing.T) {
	var client *DBClient
	ctx := context.Background()

	_, err := client.AddSubmission(ctx, testMBID1, map[string][]float32{"mfccs": {1}})
	assert.Error(t, err)

	_, err = client.HasSubmission(ctx, testMBID1, 0)
	assert.Error(t, err)

	_, err = client.GetVector(ctx, testMBID1, 0, "mfccs")
	assert.Error(t, err)

	err = client.EachVector(ctx, "mfccs", func(StoredVector) error { return nil })
	assert.Error(t, err)

	assert.Error(t, client.DeleteRecording(ctx, testMBID1))
	assert.NoError(t, client.Close(), "Close on nil client should return nil")
}
