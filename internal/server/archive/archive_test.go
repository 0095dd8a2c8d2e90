package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func withSeams(t *testing.T, putter objectPutter, loadErr error) *s3.Options {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	applied := &s3.Options{}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		if loadErr != nil {
			return aws.Config{}, loadErr
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		for _, fn := range optFns {
			fn(applied)
		}
		return putter
	}
	return applied
}

func TestKey(t *testing.T) {
	k := Key(42, time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^users/42/2024/03/07/[0-9a-f-]{36}\.json$`), k)
	assert.NotEqual(t, k, Key(42, time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC)))
}

func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), Options{})
	assert.Error(t, err)
}

func TestNewS3Archiver_LoadConfigError(t *testing.T) {
	withSeams(t, &fakePutter{}, errors.New("no region"))
	_, err := NewS3Archiver(context.Background(), Options{Bucket: "b"})
	assert.ErrorContains(t, err, "load aws config: no region")
}

func TestS3Archiver_Archive(t *testing.T) {
	putter := &fakePutter{}
	applied := withSeams(t, putter, nil)

	a, err := NewS3Archiver(context.Background(), Options{
		Bucket: "snapshots", Region: "us-east-1", Endpoint: "http://127.0.0.1:9000", AccessKey: "k", SecretKey: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(applied.BaseEndpoint))
	assert.True(t, applied.UsePathStyle)

	a.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	snap := &snapshot.Snapshot{Tasks: []snapshot.Task{{Title: "Buy milk"}}, Conversations: []snapshot.Conversation{}}
	key, err := a.Archive(context.Background(), 7, snap)
	require.NoError(t, err)

	assert.Regexp(t, `^users/7/2024/01/02/`, key)
	assert.Equal(t, "snapshots", aws.ToString(putter.in.Bucket))
	assert.Equal(t, key, aws.ToString(putter.in.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.in.ContentType))

	var back snapshot.Snapshot
	require.NoError(t, json.Unmarshal(putter.body, &back))
	assert.Equal(t, "Buy milk", back.Tasks[0].Title)
}

func TestS3Archiver_PutError(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	withSeams(t, putter, nil)

	a, err := NewS3Archiver(context.Background(), Options{Bucket: "b"})
	require.NoError(t, err)

	_, err = a.Archive(context.Background(), 1, &snapshot.Snapshot{})
	assert.ErrorContains(t, err, "access denied")
}

func TestNop(t *testing.T) {
	key, err := Nop{}.Archive(context.Background(), 1, nil)
	assert.NoError(t, err)
	assert.Empty(t, key)
}
