package publish

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/config"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

// exerciseBackend runs the same checks against any Backend.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "m1/run-1/alice-0-dump-pgstats.sh", []byte("#!/bin/bash\n\n")))
	require.NoError(t, b.Write(ctx, "m1/run-1/bob-0-dump-pgstats.sh", []byte("#!/bin/bash\n\n")))
	require.NoError(t, b.Write(ctx, "m2/run-9/carol-1-restart-ecs-service.sh", []byte("x")))

	data, err := b.Read(ctx, "m1/run-1/alice-0-dump-pgstats.sh")
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\n\n", string(data))

	_, err = b.Read(ctx, "m1/run-1/missing.sh")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := b.Exists(ctx, "m1/run-1/bob-0-dump-pgstats.sh")
	require.NoError(t, err)
	assert.True(t, ok)

	paths, err := b.List(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"m1/run-1/alice-0-dump-pgstats.sh",
		"m1/run-1/bob-0-dump-pgstats.sh",
	}, paths)

	require.NoError(t, b.Delete(ctx, "m1/run-1/bob-0-dump-pgstats.sh"))
	ok, err = b.Exists(ctx, "m1/run-1/bob-0-dump-pgstats.sh")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exerciseBackend(t, s)

	t.Run("rejects escaping paths", func(t *testing.T) {
		err := s.Write(context.Background(), "../outside.sh", []byte("x"))
		assert.Error(t, err)
	})

	t.Run("executable", func(t *testing.T) {
		require.NoError(t, s.Write(context.Background(), "m3/a.sh", []byte("x")))
		info, err := os.Stat(filepath.Join(s.rootDir, "m3", "a.sh"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	})
}

func TestS3Storage(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StorageWithClient(fake, "scripts", "/janus/")
	exerciseBackend(t, s)

	_, ok := fake.objects["janus/m2/run-9/carol-1-restart-ecs-service.sh"]
	assert.True(t, ok, "keys are stored under the prefix")
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "alice-0-dump-pgstats.sh")
	b := filepath.Join(dir, "alice-1-query-database-status.sh")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0755))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0755))

	backend, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	keys, err := Files(context.Background(), backend, Key("m1", "run-1", ""), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"m1/run-1/alice-0-dump-pgstats.sh",
		"m1/run-1/alice-1-query-database-status.sh",
	}, keys)

	_, err = Files(context.Background(), backend, "m1", []string{filepath.Join(dir, "missing.sh")})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	b, err := New(context.Background(), config.PublishConfig{Backend: config.PublishNone})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = New(context.Background(), config.PublishConfig{Backend: config.PublishLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, b)

	_, err = New(context.Background(), config.PublishConfig{Backend: "ftp"})
	assert.Error(t, err)
}
