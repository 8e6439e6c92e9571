package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/pkg/models"
)

func TestContainer_ResolvesSingletons(t *testing.T) {
	a := testApp()
	require.NoError(t, a.register())

	fetcher, err := a.Fetcher()
	require.NoError(t, err)
	again, err := a.Fetcher()
	require.NoError(t, err)
	assert.Same(t, fetcher, again)
	assert.Equal(t, 2, fetcher.MaxIDsPerCall(models.SourceSenat))

	decoder, err := a.Decoder()
	require.NoError(t, err)
	assert.NotNil(t, decoder)
}

func TestContainer_StoreComponents(t *testing.T) {
	tests := []struct {
		name    string
		store   *Store
		wantErr bool
	}{
		{"without a store", nil, true},
		{"with a store", &Store{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp()
			a.Store = tt.store
			require.NoError(t, a.register())

			engine, err := a.MergeEngine()
			reconciler, rerr := a.Reconciler()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, rerr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, rerr)
			assert.NotNil(t, engine)
			assert.NotNil(t, reconciler)

			again, err := a.MergeEngine()
			require.NoError(t, err)
			assert.Same(t, engine, again)
		})
	}
}

func TestContainer_SeparatePerApp(t *testing.T) {
	first, second := testApp(), testApp()

	a, err := first.Fetcher()
	require.NoError(t, err)
	b, err := second.Fetcher()
	require.NoError(t, err)

	assert.NotEqual(t, first.containerID, second.containerID)
	assert.NotSame(t, a, b)
}
