package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cuemby/fsbench/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	failOn  string
}

func newFakePutter() *fakePutter {
	return &fakePutter{objects: make(map[string]string), types: make(map[string]string)}
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failOn {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+key] = string(data)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakePutter) keys() []string {
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func runDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "fast_xfs_20260303_100000")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extra"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "io_randread.txt"), []byte("read: IOPS=1k"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra", "notes.csv"), []byte("a,b"), 0644))
	return dir
}

func TestUploadDir(t *testing.T) {
	dir := runDir(t)
	putter := newFakePutter()
	a := NewWithClient(putter, "bench", "/lab-1/")

	n, err := a.UploadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{
		"bench/lab-1/fast_xfs_20260303_100000/extra/notes.csv",
		"bench/lab-1/fast_xfs_20260303_100000/io_randread.txt",
		"bench/lab-1/fast_xfs_20260303_100000/run.json",
	}, putter.keys())
	assert.Equal(t, "read: IOPS=1k", putter.objects["bench/lab-1/fast_xfs_20260303_100000/io_randread.txt"])
	assert.Equal(t, "application/json", putter.types["lab-1/fast_xfs_20260303_100000/run.json"])
	assert.Equal(t, "text/csv", putter.types["lab-1/fast_xfs_20260303_100000/extra/notes.csv"])
}

func TestUploadDirNoPrefix(t *testing.T) {
	dir := runDir(t)
	a := NewWithClient(newFakePutter(), "bench", "")

	key, err := a.Key(dir, filepath.Join(dir, "run.json"))
	require.NoError(t, err)
	assert.Equal(t, "fast_xfs_20260303_100000/run.json", key)
}

func TestUploadDirFailure(t *testing.T) {
	dir := runDir(t)
	putter := newFakePutter()
	putter.failOn = "fast_xfs_20260303_100000/io_randread.txt"
	a := NewWithClient(putter, "bench", "")

	n, err := a.UploadDir(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, 1, n, "extra/notes.csv sorts first and is uploaded")
}

func TestUploadDirCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewWithClient(newFakePutter(), "bench", "").UploadDir(ctx, runDir(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), config.ArchiveConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewWithStaticCredentials(t *testing.T) {
	a, err := New(context.Background(), config.ArchiveConfig{
		Bucket:          "bench",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)
	assert.IsType(t, &s3.Client{}, a.client)
}
