package jsont

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTableRegister(t *testing.T) {
	table := NewFormatterTable()
	a := &testFormatter{BasePlugin: BasePlugin{ID: "b"}}
	b := &testFormatter{BasePlugin: BasePlugin{ID: "a"}}
	require.NoError(t, table.Register(a, b))

	got, ok := table.Lookup("b")
	assert.True(t, ok)
	assert.Same(t, a, got)
	_, ok = table.Lookup("c")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, table.Identifiers())

	tests := []struct {
		name    string
		plugin  *testFormatter
		wantErr string
	}{
		{"duplicate", &testFormatter{BasePlugin: BasePlugin{ID: "a"}}, "formatter 'a' already registered"},
		{"empty identifier", &testFormatter{}, "formatter identifier cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, table.Register(tt.plugin), tt.wantErr)
		})
	}
}

func TestSymbolTableLock(t *testing.T) {
	table := NewPredicateTable()
	assert.False(t, table.Locked())

	table.Lock()
	table.Lock()
	assert.True(t, table.Locked())
	assert.EqualError(t, table.Register(&testPredicate{BasePlugin: BasePlugin{ID: "x?"}}), "predicate table is locked")
	assert.Empty(t, table.Identifiers())
}
