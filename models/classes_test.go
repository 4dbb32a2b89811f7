package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedSignClasses(t *testing.T) {
	assert.Equal(t, 12, SpeedSignClasses.Len())
	assert.Equal(t, "10", SpeedSignClasses.Name(0))
	assert.Equal(t, "120", SpeedSignClasses.Name(11))
	assert.Equal(t, "class_42", SpeedSignClasses.Name(42))

	idx, err := SpeedSignClasses.Index("50")
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	_, err = SpeedSignClasses.Index("stop")
	assert.Error(t, err)
}

func TestParseUltralyticsNames(t *testing.T) {
	set, err := ParseUltralyticsNames("{0: '30', 1: '50', 2: 'stop sign'}")
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, "50", set.Name(1))
	assert.Equal(t, "stop sign", set.Name(2))

	_, err = ParseUltralyticsNames("{}")
	assert.Error(t, err)

	_, err = ParseUltralyticsNames("{0: [")
	assert.Error(t, err)
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    map[int]string
	}{
		{
			name: "text", file: "labels.txt", content: "30\n\n50\n",
			want: map[int]string{0: "30", 2: "50"},
		},
		{
			name: "dataset list", file: "data.yaml", content: "nc: 2\nnames: ['60', '70']\n",
			want: map[int]string{0: "60", 1: "70"},
		},
		{
			name: "dataset map", file: "data.yml", content: "names:\n  0: '80'\n  3: '90'\n",
			want: map[int]string{0: "80", 3: "90"},
		},
		{
			name: "bare map", file: "bare.yaml", content: "0: '100'\n1: '110'\n",
			want: map[int]string{0: "100", 1: "110"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			set, err := LoadLabels(path)
			require.NoError(t, err)
			for idx, name := range tt.want {
				assert.Equal(t, name, set.Name(idx))
			}
			assert.Len(t, set.Classes, len(tt.want))
		})
	}

	_, err := LoadLabels(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = LoadLabels(empty)
	assert.Error(t, err)
}
