package tags

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	catalog := Default()
	assert.GreaterOrEqual(t, len(catalog), DefaultSampleSize)
	for _, tag := range catalog {
		assert.NotEmpty(t, tag.Text)
		assert.GreaterOrEqual(t, tag.Weight, 0.0)
		assert.LessOrEqual(t, tag.Weight, 1.0)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    int
		wantErr string
	}{
		{
			name: "valid",
			yaml: "tags:\n  - {text: Rain, weight: 0.5}\n  - {text: Clock, weight: 1}\n",
			want: 2,
		},
		{
			name:    "empty catalog",
			yaml:    "tags: []\n",
			wantErr: "empty",
		},
		{
			name:    "weight out of range",
			yaml:    "tags:\n  - {text: Rain, weight: 1.5}\n",
			wantErr: "outside [0,1]",
		},
		{
			name:    "blank text",
			yaml:    "tags:\n  - {text: '  ', weight: 0.5}\n",
			wantErr: "text is empty",
		},
		{
			name:    "duplicate",
			yaml:    "tags:\n  - {text: Rain, weight: 0.5}\n  - {text: Rain, weight: 0.2}\n",
			wantErr: "duplicate",
		},
		{
			name:    "unknown field",
			yaml:    "tags:\n  - {text: Rain, weight: 0.5, colour: red}\n",
			wantErr: "failed to decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := Load(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, catalog, tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tags:\n  - {text: Rain, weight: 0.5}\n"), 0o644))

	catalog, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Text: "Rain", Weight: 0.5}}, catalog)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	catalog := Default()
	rng := rand.New(rand.NewPCG(1, 2))

	picked := Sample(rng, catalog, 10)
	require.Len(t, picked, 10)

	seen := make(map[string]bool)
	for _, tag := range picked {
		assert.False(t, seen[tag.Text], "sampled %q twice", tag.Text)
		seen[tag.Text] = true
	}

	assert.Len(t, Sample(rng, catalog, len(catalog)+10), len(catalog))
	assert.Empty(t, Sample(rng, catalog, -1))

	// the input order is untouched
	assert.Equal(t, Default(), catalog)
}
