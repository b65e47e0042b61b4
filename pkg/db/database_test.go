package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestOpenMemory_IsolatedDatabases(t *testing.T) {
	t.Parallel()

	a, err := OpenMemory(&probe{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(a) })

	b, err := OpenMemory(&probe{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(b) })

	require.NoError(t, a.Create(&probe{Name: "gummy"}).Error)

	var n int64
	require.NoError(t, b.Model(&probe{}).Count(&n).Error)
	assert.Zero(t, n)

	require.NoError(t, a.Model(&probe{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
