package item

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog(strings.NewReader(`
items:
  - name: Alpha
    mediaUrl: https://example.com/a.png
  - id: 0191b9c2-7a1e-7c3d-9a8b-0123456789ab
    name: Beta
`))
	require.NoError(t, err)
	require.Len(t, cat.Items, 2)
	assert.Equal(t, "Alpha", cat.Items[0].Name)
	assert.Equal(t, "0191b9c2-7a1e-7c3d-9a8b-0123456789ab", cat.Items[1].ID)
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct{ name, doc string }{
		{"空文件", ""},
		{"没有条目", "items: []\n"},
		{"缺少名称", "items:\n  - mediaUrl: x\n"},
		{"ID不是UUID", "items:\n  - id: a_b\n    name: x\n"},
		{"未知字段", "items:\n  - name: x\n    score: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}
