package service_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	invrepo "github.com/brewops/brewops-backend/internal/inventory/repository"
	"github.com/brewops/brewops-backend/internal/procurement/service"
	"github.com/brewops/brewops-backend/pkg/errors"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejectionLogs(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		if entry["message"] == "purchase order operation rejected" {
			entries = append(entries, entry)
		}
	}
	return entries
}

func TestPurchaseOrder_RejectedReceiptLogsOrderAndLine(t *testing.T) {
	env := newProcurementEnv(t)
	ctx := context.Background()

	var buf bytes.Buffer
	orders := service.NewPurchaseOrderService(env.db, env.poRepo, invrepo.NewItemRepository(env.db), env.ledger,
		nil, nil, logger.NewWithWriter(&buf, "brewery-service", "warn"))

	item := env.fx.Item()
	po := env.fx.PurchaseOrder("sent")
	lineID := env.fx.PurchaseOrderLine(po, item.ID, "10", "8")

	_, err := orders.ReceiveLine(ctx, service.ReceiveLineInput{
		PurchaseOrderLineID: lineID,
		QuantityReceived:    dec("5"),
		LotNumber:           "OVER-1",
	})
	require.Equal(t, errors.CodeOverReceipt, errors.CodeOf(err))

	entries := rejectionLogs(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, po, entries[0]["purchase_order_id"])
	assert.Equal(t, lineID, entries[0]["line_id"])
	assert.Equal(t, "receive", entries[0]["operation"])
}
