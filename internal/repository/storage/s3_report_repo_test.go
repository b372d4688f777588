package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/smartspend/smartspend-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	headErr   error
	createErr error
	putErr    error
	created   []string
	puts      []*s3.PutObjectInput
	bodies    [][]byte
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, aws.ToString(params.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestReportKey(t *testing.T) {
	started := time.Date(2025, 3, 15, 10, 0, 1, 250_000_000, time.UTC)
	assert.Equal(t, "alert-sweeps/2025/03/15/2025-03-15T10-00-01.250Z.json", ReportKey(started))

	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, "alert-sweeps/2025/03/31/2025-03-31T20-00-00.000Z.json",
		ReportKey(time.Date(2025, 4, 1, 1, 30, 0, 0, ist)))
}

func TestS3ReportRepository_Archive(t *testing.T) {
	fake := &fakeS3{}
	repo := &S3ReportRepository{client: fake, bucket: "reports"}

	result := &service.SweepResult{
		StartedAt:  time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 15, 10, 0, 2, 0, time.UTC),
		Period:     "2025-03",
		Budgets:    12,
		Evaluated:  10,
		Near:       2,
		Exceeded:   1,
	}
	require.NoError(t, repo.Archive(context.Background(), result))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "reports", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "alert-sweeps/2025/03/15/2025-03-15T10-00-00.000Z.json", aws.ToString(fake.puts[0].Key))
	assert.Equal(t, "application/json", aws.ToString(fake.puts[0].ContentType))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.bodies[0], &decoded))
	assert.Equal(t, "2025-03", decoded["period"])
	assert.Equal(t, float64(2), decoded["near"])
	assert.Equal(t, float64(1), decoded["exceeded"])
}

func TestS3ReportRepository_Archive_Error(t *testing.T) {
	repo := &S3ReportRepository{client: &fakeS3{putErr: errors.New("access denied")}, bucket: "reports"}

	err := repo.Archive(context.Background(), &service.SweepResult{StartedAt: time.Now()})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	assert.NoError(t, repo.Archive(context.Background(), nil))
}

func TestS3ReportRepository_EnsureBucket(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		fake := &fakeS3{}
		repo := &S3ReportRepository{client: fake, bucket: "reports"}
		require.NoError(t, repo.ensureBucket(context.Background()))
		assert.Empty(t, fake.created)
	})

	t.Run("missing is created", func(t *testing.T) {
		fake := &fakeS3{headErr: &types.NotFound{}}
		repo := &S3ReportRepository{client: fake, bucket: "reports"}
		require.NoError(t, repo.ensureBucket(context.Background()))
		assert.Equal(t, []string{"reports"}, fake.created)
	})

	t.Run("permission error", func(t *testing.T) {
		fake := &fakeS3{headErr: errors.New("403 forbidden")}
		repo := &S3ReportRepository{client: fake, bucket: "reports"}
		assert.Error(t, repo.ensureBucket(context.Background()))
		assert.Empty(t, fake.created)
	})
}
