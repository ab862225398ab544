package purge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

var (
	_ goAccount.DataPurger = Dir{}
	_ goAccount.DataPurger = (*S3)(nil)
)

func TestDirRemovesHandleTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alice", "avatars"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "alice", "avatars", "a.png"), []byte("x"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bob"), 0o755))

	require.NoError(t, Dir{Root: root}.Purge(context.Background(), "alice"))

	_, err := os.Stat(filepath.Join(root, "alice"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "bob"))
	require.NoError(t, err, "other accounts are untouched")

	require.NoError(t, Dir{Root: root}.Purge(context.Background(), "ghost"), "missing tree is not an error")
}

func TestDirRejectsUnsafeHandles(t *testing.T) {
	root := t.TempDir()
	for _, h := range []string{"", ".", "..", "../etc", "a/b", `a\b`} {
		err := Dir{Root: root}.Purge(context.Background(), h)
		require.ErrorIs(t, err, ErrUnsafeHandle, h)
	}
	_, err := os.Stat(root)
	require.NoError(t, err)
}

type fakeS3 struct {
	objects  map[string]bool
	pageSize int
	lists    int
	deletes  [][]string
	failKey  string
}

func newFakeS3(keys ...string) *fakeS3 {
	f := &fakeS3{objects: map[string]bool{}, pageSize: 100}
	for _, k := range keys {
		f.objects[k] = true
	}
	return f
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lists++
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start, _ = strconv.Atoi(tok)
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	var batch []string
	out := &s3.DeleteObjectsOutput{}
	for _, obj := range in.Delete.Objects {
		key := aws.ToString(obj.Key)
		if key == f.failKey {
			out.Errors = append(out.Errors, types.Error{Key: obj.Key, Message: aws.String("AccessDenied")})
			continue
		}
		batch = append(batch, key)
		delete(f.objects, key)
	}
	f.deletes = append(f.deletes, batch)
	return out, nil
}

func TestS3DeletesOnlyHandlePrefix(t *testing.T) {
	client := newFakeS3(
		"users/alice/avatar.png",
		"users/alice/docs/1.txt",
		"users/alice-2/avatar.png",
		"users/bob/avatar.png",
	)
	p := &S3{Client: client, Bucket: "data", Prefix: "users/"}

	require.NoError(t, p.Purge(context.Background(), "alice"))

	require.Equal(t, map[string]bool{
		"users/alice-2/avatar.png": true,
		"users/bob/avatar.png":     true,
	}, client.objects)
}

func TestS3BatchesLargePrefixes(t *testing.T) {
	var keys []string
	for i := 0; i < maxDeleteBatch+3; i++ {
		keys = append(keys, fmt.Sprintf("alice/%04d", i))
	}
	client := newFakeS3(keys...)
	client.pageSize = 250

	require.NoError(t, (&S3{Client: client, Bucket: "data"}).Purge(context.Background(), "alice"))

	require.Empty(t, client.objects)
	require.Len(t, client.deletes, 2)
	require.Len(t, client.deletes[0], maxDeleteBatch)
	require.Len(t, client.deletes[1], 3)
	require.Equal(t, 5, client.lists)
}

func TestS3EmptyPrefixIsNoop(t *testing.T) {
	client := newFakeS3("bob/a")
	require.NoError(t, (&S3{Client: client, Bucket: "data"}).Purge(context.Background(), "alice"))
	require.Empty(t, client.deletes)
}

func TestS3ReportsPerObjectErrors(t *testing.T) {
	client := newFakeS3("alice/a", "alice/b")
	client.failKey = "alice/b"

	err := (&S3{Client: client, Bucket: "data"}).Purge(context.Background(), "alice")
	require.ErrorContains(t, err, "alice/b")
}

func TestS3RejectsUnsafeHandle(t *testing.T) {
	client := newFakeS3()
	err := (&S3{Client: client, Bucket: "data"}).Purge(context.Background(), "../x")
	require.True(t, errors.Is(err, ErrUnsafeHandle))
	require.Zero(t, client.lists)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{Region: "us-east-1"})
	require.Error(t, err)

	p, err := NewS3(context.Background(), S3Config{
		Bucket:    "data",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
	})
	require.NoError(t, err)
	require.Equal(t, "data", p.Bucket)
}
