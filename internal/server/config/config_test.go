package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"server"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8000", c.ListenAddr)
	assert.Equal(t, "sqlite:data/hashdrive.db", c.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, c.NonceTTL)
	assert.Equal(t, 60*time.Minute, c.TokenTTL)
	assert.Equal(t, "file", c.StorageBackend)
	assert.Equal(t, int64(64<<20), c.MaxUploadSize)
	assert.False(t, c.RequireGrant)
}

func TestLoadConfig_DefaultsWithoutArgs(t *testing.T) {
	withArgs(t)

	c := LoadConfig()
	var want Config
	want.LoadDefaults()
	if diff := cmp.Diff(&want, c); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags(t *testing.T) {
	withArgs(t,
		"-a", "127.0.0.1:9090", "-d", "postgres://db", "-s", "secret",
		"-n", "30s", "-t", "2h", "-k", "s3", "-f", "/var/blobs", "-m", "1024",
		"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		"-L", "ledger:1", "-G=true", "-O", "https://app", "-l", "debug", "-o", "text",
	)

	c := &Config{}
	parseFlags(c)

	want := &Config{
		ListenAddr:     "127.0.0.1:9090",
		DatabaseDSN:    "postgres://db",
		SecretKey:      "secret",
		NonceTTL:       30 * time.Second,
		TokenTTL:       2 * time.Hour,
		StorageBackend: "s3",
		StorageDir:     "/var/blobs",
		MaxUploadSize:  1024,
		S3RootUser:     "user",
		S3RootPassword: "password",
		S3Bucket:       "bucket",
		S3Region:       "us-west-1",
		S3BaseEndpoint: "http://endpoint",
		LedgerAddr:     "ledger:1",
		RequireGrant:   true,
		CORSOrigin:     "https://app",
		LogLevel:       "debug",
		LogFormat:      "text",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags_PanicsOnBadDuration(t *testing.T) {
	withArgs(t, "-n", "soon")
	assert.Panics(t, func() { parseFlags(&Config{}) })
}

func TestParseFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": ":9000",
		"nonce_ttl": "90s",
		"token_ttl": 3600000000000,
		"require_grant": true,
		"s3_bucket": "vault"
	}`), 0o600))
	withArgs(t, "-config", path)

	c := &Config{}
	c.LoadDefaults()
	parseFile(c)

	assert.Equal(t, ":9000", c.ListenAddr)
	assert.Equal(t, 90*time.Second, c.NonceTTL)
	assert.Equal(t, time.Hour, c.TokenTTL)
	assert.True(t, c.RequireGrant)
	assert.Equal(t, "vault", c.S3Bucket)
	assert.Equal(t, "file", c.StorageBackend, "unset fields keep defaults")
}

func TestParseFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yml")
	require.NoError(t, os.WriteFile(path, []byte("database_dsn: postgres://x\nstorage_backend: memory\nnonce_ttl: 1m\n"), 0o600))
	withArgs(t, "-c", path)

	c := &Config{}
	c.LoadDefaults()
	parseFile(c)

	assert.Equal(t, "postgres://x", c.DatabaseDSN)
	assert.Equal(t, "memory", c.StorageBackend)
	assert.Equal(t, time.Minute, c.NonceTTL)
}

func TestParseFile_PanicsOnInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	withArgs(t, "-c", path)

	assert.Panics(t, func() { parseFile(&Config{}) })
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen_addr":":9000","secret_key":"from-file"}`), 0o600))
	withArgs(t, "-c", path, "-a", ":9100")

	c := LoadConfig()
	assert.Equal(t, ":9100", c.ListenAddr)
	assert.Equal(t, "from-file", c.SecretKey)
}
