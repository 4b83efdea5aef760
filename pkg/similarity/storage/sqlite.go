package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "similarity.sqlite3"
const errDBClientNil = "db client is nil"

// ErrSubmissionNotFound is returned when no submission matches an (mbid, offset).
var ErrSubmissionNotFound = errors.New("submission not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Submission is one feature submission of a recording. Offset numbers the
// submissions of an mbid in arrival order, starting at 0.
type Submission struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	MBID      string `gorm:"column:mbid;type:varchar(36);uniqueIndex:idx_submission_ref,priority:1" json:"mbid"`
	Offset    int    `gorm:"column:submission_offset;uniqueIndex:idx_submission_ref,priority:2" json:"offset"`
	CreatedAt time.Time
}

// FeatureVector stores the vector of one metric for a submission.
type FeatureVector struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	SubmissionID uint   `gorm:"uniqueIndex:idx_vector_metric,priority:1;index:idx_vector_submission" json:"submission_id"`
	Metric       string `gorm:"type:varchar(32);uniqueIndex:idx_vector_metric,priority:2;index:idx_metric" json:"metric"`
	Dimensions   int    `json:"dimensions"`
	Vector       []byte `json:"-"`
}

// StoredVector is a decoded feature vector with the reference it belongs to.
type StoredVector struct {
	MBID   string
	Offset int
	Vector []float32
}

type vectorRow struct {
	MBID   string `gorm:"column:mbid"`
	Offset int    `gorm:"column:submission_offset"`
	Vector []byte `gorm:"column:vector"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SIMILARITY_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Submission{}, &FeatureVector{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// AddSubmission stores a new submission for mbid with one vector per metric
// and returns the offset assigned to it.
func (c *DBClient) AddSubmission(ctx context.Context, mbid string, features map[string][]float32) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	if len(features) == 0 {
		return 0, fmt.Errorf("submission for %s has no features", mbid)
	}

	// Insert metrics in a stable order so ids are reproducible.
	metrics := make([]string, 0, len(features))
	for metric := range features {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	var offset int
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Submission{}).Where("mbid = ?", mbid).Count(&count).Error; err != nil {
			return fmt.Errorf("counting submissions: %w", err)
		}

		sub := Submission{MBID: mbid, Offset: int(count)}
		if err := tx.Create(&sub).Error; err != nil {
			return fmt.Errorf("creating submission: %w", err)
		}

		vectors := make([]FeatureVector, 0, len(metrics))
		for _, metric := range metrics {
			vec := features[metric]
			vectors = append(vectors, FeatureVector{
				SubmissionID: sub.ID,
				Metric:       metric,
				Dimensions:   len(vec),
				Vector:       EncodeVector(vec),
			})
		}
		if err := tx.CreateInBatches(vectors, 100).Error; err != nil {
			return fmt.Errorf("inserting feature vectors: %w", err)
		}

		offset = sub.Offset
		return nil
	})
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// HasSubmission reports whether a submission exists for (mbid, offset).
func (c *DBClient) HasSubmission(ctx context.Context, mbid string, offset int) (bool, error) {
	if c == nil || c.DB == nil {
		return false, errors.New(errDBClientNil)
	}
	var count int64
	err := c.DB.WithContext(ctx).Model(&Submission{}).
		Where("mbid = ? AND submission_offset = ?", mbid, offset).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("querying submission: %w", err)
	}
	return count > 0, nil
}

// GetVector returns the vector of one metric for (mbid, offset).
func (c *DBClient) GetVector(ctx context.Context, mbid string, offset int, metric string) ([]float32, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row vectorRow
	err := c.vectorQuery(ctx, metric).
		Where("submissions.mbid = ? AND submissions.submission_offset = ?", mbid, offset).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying vector: %w", err)
	}
	return DecodeVector(row.Vector)
}

// EachVector streams every stored vector of metric in insertion order.
func (c *DBClient) EachVector(ctx context.Context, metric string, fn func(StoredVector) error) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	rows, err := c.vectorQuery(ctx, metric).Order("feature_vectors.id").Rows()
	if err != nil {
		return fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row vectorRow
		if err := c.DB.ScanRows(rows, &row); err != nil {
			return fmt.Errorf("scanning vector row: %w", err)
		}
		vec, err := DecodeVector(row.Vector)
		if err != nil {
			return fmt.Errorf("decoding vector for %s:%d: %w", row.MBID, row.Offset, err)
		}
		if err := fn(StoredVector{MBID: row.MBID, Offset: row.Offset, Vector: vec}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (c *DBClient) vectorQuery(ctx context.Context, metric string) *gorm.DB {
	return c.DB.WithContext(ctx).
		Table("feature_vectors").
		Select("submissions.mbid, submissions.submission_offset, feature_vectors.vector").
		Joins("JOIN submissions ON submissions.id = feature_vectors.submission_id").
		Where("feature_vectors.metric = ?", metric)
}

// CountSubmissions returns the number of stored submissions.
func (c *DBClient) CountSubmissions(ctx context.Context) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.WithContext(ctx).Model(&Submission{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting submissions: %w", err)
	}
	return count, nil
}

// ListMetrics returns the distinct metrics that have at least one vector.
func (c *DBClient) ListMetrics(ctx context.Context) ([]string, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var metrics []string
	err := c.DB.WithContext(ctx).Model(&FeatureVector{}).
		Distinct("metric").Order("metric").Pluck("metric", &metrics).Error
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	return metrics, nil
}

// DeleteRecording removes every submission of mbid together with its vectors.
func (c *DBClient) DeleteRecording(ctx context.Context, mbid string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&Submission{}).Where("mbid = ?", mbid).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("submission_id IN ?", ids).Delete(&FeatureVector{}).Error; err != nil {
			return err
		}
		if err := tx.Where("mbid = ?", mbid).Delete(&Submission{}).Error; err != nil {
			return err
		}
		return nil
	})
}
