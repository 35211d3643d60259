package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgdeps/pkg/core"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []core.RawObject
	}{
		{
			name: "objects key",
			input: `objects:
  - schema: public
    name: orders
    kind: table
    definition: CREATE TABLE public.orders (id integer)
`,
			want: []core.RawObject{{Schema: "public", Name: "orders", Kind: "table", Definition: "CREATE TABLE public.orders (id integer)"}},
		},
		{
			name: "top level list with attribute shorthand",
			input: `- schema: public
  name: orders
  kind: table
  attributes:
    - id integer
    - name: status
      type: public.order_status
  metadata:
    owner: app
`,
			want: []core.RawObject{{
				Schema: "public", Name: "orders", Kind: "table",
				Attributes: []core.Attribute{{Name: "id", Type: "integer"}, {Name: "status", Type: "public.order_status"}},
				Metadata:   map[string]string{"owner": "app"},
			}},
		},
		{
			name:  "json",
			input: `{"objects": [{"schema": "s", "name": "f", "kind": "function", "attributes": ["p_id bigint"]}]}`,
			want: []core.RawObject{{
				Schema: "s", Name: "f", Kind: "function",
				Attributes: []core.Attribute{{Name: "p_id", Type: "bigint"}},
			}},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader("just a string"))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("- [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- {schema: public, name: t, kind: table}\n"), 0o600))
	rows, err := Load(yamlPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t", rows[0].Name)

	jsonPath := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"schema":"public","name":"v","kind":"view"}]`), 0o600))
	rows, err = Load(jsonPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "view", rows[0].Kind)

	_, err = Load(filepath.Join(dir, "snapshot.csv"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
