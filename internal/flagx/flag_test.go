package flagx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "flag with equals",
			args:         []string{"-config=alt.yaml", "-a", "localhost"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=alt.yaml"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "-y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-n", "-t", "30"},
			allowedFlags: []string{"-n", "-t"},
			want:         []string{"-n", "-t", "30"},
		},
		{
			name:         "several allowed flags keep their order",
			args:         []string{"-a", ":8000", "-l", "127.0.0.1:50061", "-other", "x"},
			allowedFlags: []string{"-l", "-a"},
			want:         []string{"-a", ":8000", "-l", "127.0.0.1:50061"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-c", "/etc/hashdrive/server.yaml"}
	assert.Equal(t, "/etc/hashdrive/server.yaml", ConfigFileFlag())

	os.Args = []string{"testbin", "-config", "/tmp/server.json", "-a", ":9000"}
	assert.Equal(t, "/tmp/server.json", ConfigFileFlag())

	os.Args = []string{"testbin", "-a", ":9000"}
	assert.Empty(t, ConfigFileFlag())
}

type sample struct {
	Listen string `json:"listen_addr" yaml:"listen_addr"`
	Size   int    `json:"size" yaml:"size"`
}

func TestDecodeConfigFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"listen_addr":":8000","size":3}`), 0o600))

	yamlPath := filepath.Join(dir, "cfg.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("listen_addr: \":9000\"\nsize: 7\n"), 0o600))

	var a sample
	require.NoError(t, DecodeConfigFile(jsonPath, &a))
	assert.Equal(t, sample{Listen: ":8000", Size: 3}, a)

	var b sample
	require.NoError(t, DecodeConfigFile(yamlPath, &b))
	assert.Equal(t, sample{Listen: ":9000", Size: 7}, b)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
	require.Error(t, DecodeConfigFile(bad, &a))

	require.Error(t, DecodeConfigFile(filepath.Join(dir, "missing.json"), &a))
}
