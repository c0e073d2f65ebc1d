package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name: "all flags",
			args: []string{"-sandbox=false", "-a", "127.0.0.1:9090", "-g", ":6000", "-d", "postgres://db", "-t", "file:cache.db"},
			mutate: func(c *Config) {
				c.Sandbox = false
				c.HTTPAddr = "127.0.0.1:9090"
				c.GRPCHealthAddr = ":6000"
				c.DatabaseDSN = "postgres://db"
				c.TokenCacheDSN = "file:cache.db"
			},
		},
		{
			name:   "foreign flags ignored",
			args:   []string{"-c", "cfg.json", "-env", "x.env", "-a", ":1"},
			mutate: func(c *Config) { c.HTTPAddr = ":1" },
		},
		{
			name:    "bad bool",
			args:    []string{"-sandbox=nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LoadDefaults()

			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			want := &Config{}
			want.LoadDefaults()
			tt.mutate(want)
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}
