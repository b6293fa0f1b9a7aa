package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/testutil"
)

const testBucket = "cli-test"

// run executes the command tree with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--env-file="}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func fakeFlags(fake *testutil.FakeS3) []string {
	return []string{
		"--endpoint", fake.Endpoint(),
		"--region", "us-east-1",
		"--path-style",
		"--access-key-id", "test",
		"--secret-access-key", "test",
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	}
}

func TestUploadDownloadCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fake := testutil.NewFakeS3(t, testBucket)
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "bravo!",
		"skip.tmp":  "tmp",
	})

	out, err := run(t, append([]string{"upload", src, testBucket, "site", "--concurrent", "--exclude", "*.tmp"},
		fakeFlags(fake)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded 2/2 files")
	assert.Contains(t, out, "succeeded")

	dst := t.TempDir()
	out, err = run(t, append([]string{"download", testBucket, "site", dst, "--quiet"}, fakeFlags(fake)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded 2/2 files")

	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
	data, err = os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bravo!", string(data))
	assert.NoFileExists(t, filepath.Join(dst, "skip.tmp"))
}

func TestMinioBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fake := testutil.NewFakeS3(t, testBucket)
	fake.PutObject(t, testBucket, "logs/1.log", []byte("one"))
	fake.PutObject(t, testBucket, "logs/2.log", []byte("two"))

	dst := t.TempDir()
	out, err := run(t, append([]string{"download", testBucket, "logs", dst, "--backend", "minio", "--quiet"},
		fakeFlags(fake)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded 2/2 files")
	assert.FileExists(t, filepath.Join(dst, "2.log"))
}

func TestEnvironmentSettings(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fake := testutil.NewFakeS3(t, testBucket)
	fake.PutObject(t, testBucket, "docs/a.txt", []byte("a"))

	t.Setenv("S3TRANSFER_ENDPOINT", fake.Endpoint())
	t.Setenv("S3TRANSFER_REGION", "us-east-1")
	t.Setenv("S3TRANSFER_PATH_STYLE", "true")
	t.Setenv("S3TRANSFER_ACCESS_KEY_ID", "test")
	t.Setenv("S3TRANSFER_SECRET_ACCESS_KEY", "test")

	dst := t.TempDir()
	out, err := run(t, "download", testBucket, "docs/", dst, "--quiet", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded 1/1 files")
	assert.FileExists(t, filepath.Join(dst, "a.txt"))
}

func TestEnvFile(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fake := testutil.NewFakeS3(t, testBucket)
	fake.PutObject(t, testBucket, "docs/a.txt", []byte("a"))

	// Register restoration, then clear so the env file can set it.
	t.Setenv("S3TRANSFER_ENDPOINT", "")
	require.NoError(t, os.Unsetenv("S3TRANSFER_ENDPOINT"))

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("S3TRANSFER_ENDPOINT="+fake.Endpoint()+"\n"), 0o600))

	var stdout bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{
		"--env-file=" + envFile,
		"--region", "us-east-1", "--path-style",
		"--access-key-id", "test", "--secret-access-key", "test",
		"download", testBucket, "docs", t.TempDir(), "--quiet",
	})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), "Downloaded 1/1 files")
}

func TestCommandErrors(t *testing.T) {
	fake := testutil.NewFakeS3(t, testBucket)

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, err error)
	}{
		{
			name: "missing arguments",
			args: []string{"download", testBucket},
		},
		{
			name: "bad modified-since",
			args: []string{"download", testBucket, "docs", t.TempDir(), "--modified-since", "yesterday"},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "RFC3339")
			},
		},
		{
			name: "unknown backend",
			args: []string{"download", testBucket, "docs", t.TempDir(), "--backend", "ftp"},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "unknown backend")
			},
		},
		{
			name: "missing bucket",
			args: append([]string{"download", "no-such-bucket", "docs", t.TempDir(), "--quiet"}, fakeFlags(fake)...),
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsListing(err))
				assert.Equal(t, errors.CodeNotFound, errors.Code(err))
			},
		},
		{
			name: "upload of a missing directory",
			args: append([]string{"upload", filepath.Join(t.TempDir(), "nope"), testBucket, "--quiet"},
				fakeFlags(fake)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("modified-since", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTime("modified-since", "2024-01-02T15:04:05Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)))

	_, err = parseTime("modified-since", "2024-01-02")
	require.Error(t, err)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		secure   bool
		wantErr  bool
	}{
		{"http://localhost:9000", "localhost:9000", false, false},
		{"https://s3.example.com", "s3.example.com", true, false},
		{"play.min.io", "play.min.io", true, false},
		{"", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, secure, err := splitEndpoint(tt.endpoint)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}
