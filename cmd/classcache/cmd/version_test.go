package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/classcache/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "full",
			args: []string{"version"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "classcache "+version.Short())
				assert.Contains(t, out, "commit:")
				assert.Contains(t, out, "module: "+version.GetInfo().Module)
			},
		},
		{
			name: "deps",
			args: []string{"version", "--deps"},
			check: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimSpace(out), "\n")
				require.GreaterOrEqual(t, len(lines), 2)
				assert.True(t, strings.HasPrefix(lines[1], "module: "))
				assert.Len(t, lines, 2+len(version.Dependencies()))
			},
		},
		{
			name: "short",
			args: []string{"version", "--short"},
			check: func(t *testing.T, out string) {
				assert.Equal(t, version.Short(), strings.TrimSpace(out))
			},
		},
		{
			name: "json",
			args: []string{"version", "--json"},
			check: func(t *testing.T, out string) {
				var info version.BuildInfo
				require.NoError(t, json.Unmarshal([]byte(out), &info))
				assert.Equal(t, version.Short(), info.Version)
				assert.NotEmpty(t, info.Module)
				assert.NotEmpty(t, info.GoVersion)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCmd(t, context.Background(), tt.args...)
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}
