package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/storage/csvstore"
	"github.com/bobmcallan/finhub/internal/storage/sqlitestore"
)

func TestNewStageStore(t *testing.T) {
	logger := common.NewSilentLogger()

	s, err := NewStageStore(logger, &common.StorageConfig{Path: t.TempDir()}, ";")
	require.NoError(t, err)
	assert.IsType(t, &csvstore.Store{}, s)

	s, err = NewStageStore(logger, &common.StorageConfig{Backend: BackendSQLite, Path: t.TempDir()}, ";")
	require.NoError(t, err)
	assert.IsType(t, &sqlitestore.Store{}, s)
	require.NoError(t, s.Close())

	_, err = NewStageStore(logger, &common.StorageConfig{Backend: "s3"}, ";")
	assert.Error(t, err)
}
