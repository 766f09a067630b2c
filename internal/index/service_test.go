package index_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultindex/internal/index"
	"vaultindex/internal/model"
)

func TestService_List(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for i := range 5 {
		h.fsys.AddFile(p(fmt.Sprintf("f%d.txt", i)), nil)
	}
	_, err := h.svc.Reindex(ctx, h.vault)
	require.NoError(t, err)

	t.Run("default limit", func(t *testing.T) {
		got, err := h.svc.List(ctx, model.ListQuery{VaultID: h.vault.ID})
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})

	t.Run("explicit limit", func(t *testing.T) {
		got, err := h.svc.List(ctx, model.ListQuery{VaultID: h.vault.ID, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("oversized limit is capped", func(t *testing.T) {
		got, err := h.svc.List(ctx, model.ListQuery{VaultID: h.vault.ID, Limit: index.MaxListLimit * 10})
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})

	t.Run("vault id required", func(t *testing.T) {
		_, err := h.svc.List(ctx, model.ListQuery{})
		assert.Error(t, err)
	})
}

func TestParseID(t *testing.T) {
	id := xid.New()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"xid form", id.String(), id.String(), false},
		{"hex form", fmt.Sprintf("%x", id.Bytes()), id.String(), false},
		{"bad hex", "zzzzzzzzzzzzzzzzzzzzzzzz", "", true},
		{"garbage", "not-an-id", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := index.ParseID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestXIDGenerator_Sortable(t *testing.T) {
	gen := index.XIDGenerator{}
	prev := gen.New()
	for range 100 {
		next := gen.New()
		assert.Less(t, prev, next)
		prev = next
	}
}
