package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	editingRepo "casefile/internal/domain/repositories/editing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects    map[string]string
	getErr     error
	restoreErr error
	head       *s3.HeadObjectOutput
	restoreIn  *s3.RestoreObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.objects[aws.ToString(in.Key)]))}, nil
}

func (f *fakeS3) HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return f.head, nil
}

func (f *fakeS3) RestoreObject(_ context.Context, in *s3.RestoreObjectInput, _ ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
	f.restoreIn = in
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	return &s3.RestoreObjectOutput{}, nil
}

func TestS3Store_PutGet(t *testing.T) {
	fake := &fakeS3{}
	store := newS3Store(fake, S3Config{Bucket: "versions"}, nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "documents/d/versions/v", []byte("Dear counsel")))
	data, err := store.Get(ctx, "documents/d/versions/v")
	require.NoError(t, err)
	assert.Equal(t, "Dear counsel", string(data))
}

func TestS3Store_GetArchived(t *testing.T) {
	fake := &fakeS3{getErr: &smithy.GenericAPIError{Code: "InvalidObjectState", Message: "archived"}}
	store := newS3Store(fake, S3Config{Bucket: "versions"}, nil)

	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, editingRepo.ErrContentArchived)
}

func TestS3Store_RequestRestore(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "accepted"},
		{name: "already in progress", err: &smithy.GenericAPIError{Code: "RestoreAlreadyInProgress"}},
		{name: "not archived", err: &smithy.GenericAPIError{Code: "InvalidObjectState"}},
		{name: "other failure", err: errors.New("network down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{restoreErr: tt.err}
			store := newS3Store(fake, S3Config{Bucket: "versions", RestoreDays: 3, RestoreTier: "Bulk"}, nil)

			err := store.RequestRestore(context.Background(), "k")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, fake.restoreIn)
			assert.Equal(t, int32(3), aws.ToInt32(fake.restoreIn.RestoreRequest.Days))
			assert.Equal(t, types.TierBulk, fake.restoreIn.RestoreRequest.GlacierJobParameters.Tier)
		})
	}
}

func TestS3Store_RestoreStatus(t *testing.T) {
	tests := []struct {
		name string
		head *s3.HeadObjectOutput
		want editingRepo.RestoreStatus
	}{
		{
			name: "archived, never restored",
			head: &s3.HeadObjectOutput{StorageClass: types.StorageClassGlacier},
			want: editingRepo.RestoreNone,
		},
		{
			name: "restore ongoing",
			head: &s3.HeadObjectOutput{StorageClass: types.StorageClassGlacier, Restore: aws.String(`ongoing-request="true"`)},
			want: editingRepo.RestoreOngoing,
		},
		{
			name: "restore finished",
			head: &s3.HeadObjectOutput{
				StorageClass: types.StorageClassDeepArchive,
				Restore:      aws.String(`ongoing-request="false", expiry-date="Fri, 21 Dec 2012 00:00:00 GMT"`),
			},
			want: editingRepo.RestoreDone,
		},
		{
			name: "standard class",
			head: &s3.HeadObjectOutput{StorageClass: types.StorageClassStandard},
			want: editingRepo.RestoreDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newS3Store(&fakeS3{head: tt.head}, S3Config{Bucket: "versions"}, nil)
			got, err := store.RestoreStatus(context.Background(), "k")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3Store_RestoreWindowByTier(t *testing.T) {
	expedited := newS3Store(&fakeS3{}, S3Config{RestoreTier: "Expedited"}, nil)
	lo, hi := expedited.RestoreWindow()
	assert.Less(t, lo, hi)

	standard := newS3Store(&fakeS3{}, S3Config{}, nil)
	slo, _ := standard.RestoreWindow()
	assert.Greater(t, slo, hi)
}

func TestNewS3Store_AppliesRegion(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var region string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		region = lo.Region
		return aws.Config{Region: lo.Region}, nil
	}

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "versions",
		Region:    "eu-central-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Equal(t, "eu-central-1", region)
}

func TestNewS3Store_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}

	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"}, nil)
	assert.Error(t, err)
}
