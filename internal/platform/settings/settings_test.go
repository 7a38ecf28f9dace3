package settings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

func TestLoadFrom_Defaults(t *testing.T) {
	store, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	require.Equal(t, ports.Settings{
		ProcessingEnabled:  true,
		IntervalSeconds:    5,
		MaxRetries:         3,
		MaxConcurrency:     4,
		CompanyID:          "sumsang",
		CompanyBankAccount: "sumsang-main",
	}, store.Current())
}

func TestLoadFrom_Overrides(t *testing.T) {
	store, err := LoadFrom(map[string]string{
		"PROCUREMENT_PROCESSING_ENABLED": "false",
		"PROCUREMENT_INTERVAL_SECONDS":   "30",
		"PROCUREMENT_MAX_RETRIES":        "0",
		"COMPANY_BANK_ACCOUNT":           "ACC-9",
	})
	require.NoError(t, err)
	current := store.Current()
	require.False(t, current.ProcessingEnabled)
	require.Equal(t, 30, current.IntervalSeconds)
	require.Zero(t, current.MaxRetries)
	require.Equal(t, "ACC-9", current.CompanyBankAccount)
}

func TestLoadFrom_Rejects(t *testing.T) {
	_, err := LoadFrom(map[string]string{"PROCUREMENT_INTERVAL_SECONDS": "soon"})
	require.Error(t, err)

	_, err = LoadFrom(map[string]string{"PROCUREMENT_INTERVAL_SECONDS": "0"})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestReload_KeepsSnapshotOnError(t *testing.T) {
	vars := map[string]string{"PROCUREMENT_MAX_RETRIES": "7"}
	store, err := LoadFrom(vars)
	require.NoError(t, err)

	vars["PROCUREMENT_MAX_RETRIES"] = "-1"
	require.ErrorIs(t, store.Reload(), ErrInvalid)
	require.Equal(t, 7, store.Current().MaxRetries)

	vars["PROCUREMENT_MAX_RETRIES"] = "2"
	require.NoError(t, store.Reload())
	require.Equal(t, 2, store.Current().MaxRetries)
}

func TestUpdate(t *testing.T) {
	store, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	disabled := false
	retries := 9
	updated, err := store.Update(Patch{ProcessingEnabled: &disabled, MaxRetries: &retries})
	require.NoError(t, err)
	require.False(t, updated.ProcessingEnabled)
	require.Equal(t, 9, updated.MaxRetries)
	require.Equal(t, 5, updated.IntervalSeconds)
	require.Equal(t, updated, store.Current())

	zero := 0
	_, err = store.Update(Patch{IntervalSeconds: &zero})
	require.ErrorIs(t, err, ErrInvalid)
	require.Equal(t, 5, store.Current().IntervalSeconds)
}

func TestUpdate_ConcurrentPatchesAreNotLost(t *testing.T) {
	store, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				enabled := false
				_, _ = store.Update(Patch{ProcessingEnabled: &enabled})
				return
			}
			retries := 11
			_, _ = store.Update(Patch{MaxRetries: &retries})
		}()
	}
	wg.Wait()

	require.False(t, store.Current().ProcessingEnabled)
	require.Equal(t, 11, store.Current().MaxRetries)
}
