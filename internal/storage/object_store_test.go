package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	key := objectKey("/reports/", "orders.xlsx", now)

	assert.True(t, strings.HasPrefix(key, "reports/2025/03/09/"), key)
	assert.True(t, strings.HasSuffix(key, ".xlsx"), key)
}

func TestMemoryObjectStore(t *testing.T) {
	store := NewMemoryObjectStore()

	obj, err := store.Put(context.Background(), "reports", "orders.xlsx", "application/octet-stream", []byte("data"))
	require.NoError(t, err)

	body, ok := store.Get(obj.Key)
	require.True(t, ok)
	assert.Equal(t, "data", string(body))
	assert.Contains(t, obj.DownloadURL, obj.Key)
}
