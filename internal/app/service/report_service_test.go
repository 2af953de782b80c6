package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReportService_ExportOrders(t *testing.T) {
	f := newFixture(t)
	store := storage.NewMemoryObjectStore()
	svc := NewReportService(f.orderRepo, store)
	ctx := context.Background()

	a := f.createProduct(t, "Linen Shirt", 1000, 5)
	order := f.createOrder(t, nil, model.OrderStatusPending, a, 2)

	obj, err := svc.ExportOrders(ctx, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, obj.Key, "reports/")

	body, ok := store.Get(obj.Key)
	require.True(t, ok)

	wb, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Tracking code", rows[0][1])
	assert.Equal(t, order.ShortID(), rows[1][1])
	assert.Equal(t, "pending", rows[1][3])

	items, err := wb.GetRows("Items")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Linen Shirt", items[1][3])
	assert.Equal(t, "2", items[1][4])
}

func TestReportService_ExportOrdersRange(t *testing.T) {
	f := newFixture(t)
	store := storage.NewMemoryObjectStore()
	svc := NewReportService(f.orderRepo, store)

	a := f.createProduct(t, "A", 1000, 5)
	f.createOrder(t, nil, model.OrderStatusPending, a, 1)

	from := time.Now().Add(time.Hour)
	obj, err := svc.ExportOrders(context.Background(), &from, nil)
	require.NoError(t, err)

	body, ok := store.Get(obj.Key)
	require.True(t, ok)
	wb, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Orders")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
