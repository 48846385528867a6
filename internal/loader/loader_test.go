package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anm/internal/codec"
	"anm/internal/domain"
	"anm/internal/service"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"model.json", "json", false},
		{"/tmp/model.YAML", "yaml", false},
		{"model.yml", "yaml", false},
		{"model.xml", "", true},
		{"model", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatForPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, codec.ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveAndLoadModelFile(t *testing.T) {
	ctx := context.Background()
	src := service.NewGraphService(nil, nil, nil, service.Options{})
	_, err := src.Dispatch(ctx, service.AddNodeCmd{Node: domain.NewNode("hq", domain.ComponentLocation, "HQ")})
	require.NoError(t, err)

	for _, name := range []string{"model.json", "model.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveModelFile(src, path))

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temp file left behind")

			dst := service.NewGraphService(nil, nil, nil, service.Options{})
			loaded, err := LoadModelFile(ctx, dst, path)
			require.NoError(t, err)
			assert.Contains(t, loaded.Graph.Nodes, "hq")
			assert.Contains(t, dst.GetGraph().Nodes, "hq")
		})
	}
}

func TestLoadModelFileErrors(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGraphService(nil, nil, nil, service.Options{})
	dir := t.TempDir()

	_, err := LoadModelFile(ctx, svc, filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0644))
	_, err = LoadModelFile(ctx, svc, broken)
	assert.ErrorIs(t, err, codec.ErrMalformedInput)
}
