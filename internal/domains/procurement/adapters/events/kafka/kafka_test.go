package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/memory"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/application"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
	platformkafka "github.com/Apurer/procurement-engine/internal/platform/kafka"
)

type captureWriter struct {
	messages []kafkago.Message
	err      error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *captureWriter) Close() error { return nil }

func TestPublisher_WritesEnvelopeKeyedByOrder(t *testing.T) {
	writer := &captureWriter{}
	at := time.Date(2050, 3, 1, 12, 0, 0, 0, time.UTC)

	err := NewPublisher(writer, "procurement-engine").PublishStatusChanged(context.Background(), ports.StatusChange{
		OrderID:     7,
		ExternalRef: "PO-7",
		From:        domain.StatusRequiresPaymentToSupplier,
		To:          domain.StatusRequiresDelivery,
		Reason:      "PaySupplier",
		OccurredAt:  at,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "7", string(msg.Key))
	var envelope platformkafka.Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	assert.Equal(t, EventStatusChanged, envelope.EventType)
	assert.Equal(t, "procurement-engine", envelope.Producer)
	assert.NotEmpty(t, envelope.EventID)
	assert.True(t, at.Equal(envelope.OccurredAt))

	var payload StatusChangedPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, StatusChangedPayload{
		OrderID:     7,
		ExternalRef: "PO-7",
		From:        string(domain.StatusRequiresPaymentToSupplier),
		To:          string(domain.StatusRequiresDelivery),
		Reason:      "PaySupplier",
	}, payload)
}

type fakeService struct {
	ports.Service
	err   error
	calls int
}

func (s *fakeService) RecordDelivery(context.Context, string, int64) (*domain.PurchaseOrder, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PurchaseOrder{ID: 1, Status: domain.StatusDelivered}, nil
}

func TestDeliveryHandler_Classification(t *testing.T) {
	valid := []byte(`{"shipment_id":"SHIP-1","quantity":5}`)
	cases := []struct {
		name    string
		value   []byte
		err     error
		wantErr bool
		calls   int
	}{
		{name: "applied", value: valid, calls: 1},
		{name: "malformed", value: []byte(`{`)},
		{name: "missing shipment", value: []byte(`{"quantity":5}`)},
		{name: "unknown shipment", value: valid, err: ports.ErrNotFound, calls: 1},
		{name: "not awaiting delivery", value: valid, err: application.ErrConflict, calls: 1},
		{name: "storage outage", value: valid, err: errors.New("connection refused"), wantErr: true, calls: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			err := NewDeliveryHandler(svc, nil).Handle(context.Background(), kafkago.Message{Topic: DeliveryDroppedOffTopic, Value: tc.value})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.calls, svc.calls)
		})
	}
}

func TestDeliveryHandler_EndToEndWithService(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	_, err := repo.Save(ctx, &domain.PurchaseOrder{
		ID:                3,
		ExternalRef:       "PO-3",
		Quantity:          10,
		UnitPrice:         1,
		Origin:            "thoh",
		SellerBankAccount: "ACC",
		IsEquipmentOrder:  true,
		Shipping:          domain.Shipping{ShipmentID: "SHIP-3", BankAccount: "LOG", Price: 5},
		Status:            domain.StatusWaitingForDelivery,
	})
	require.NoError(t, err)
	writer := &captureWriter{}
	svc := application.NewService(repo, nil, application.WithServiceEvents(NewPublisher(writer, "test")))

	value, err := json.Marshal(DeliveryDroppedOff{ShipmentID: "SHIP-3", Quantity: 10})
	require.NoError(t, err)
	require.NoError(t, NewDeliveryHandler(svc, nil).Handle(ctx, kafkago.Message{Value: value}))

	order, err := repo.FindByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, order.Status)
	assert.Len(t, writer.messages, 1)
}

func TestDeliveryHandler_RedeliveredMessageCountsOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	_, err := repo.Save(ctx, &domain.PurchaseOrder{
		ID:                4,
		ExternalRef:       "PO-4",
		Quantity:          10,
		UnitPrice:         1,
		Origin:            "thoh",
		SellerBankAccount: "ACC",
		IsEquipmentOrder:  true,
		Shipping:          domain.Shipping{ShipmentID: "SHIP-4", BankAccount: "LOG", Price: 5},
		Status:            domain.StatusWaitingForDelivery,
	})
	require.NoError(t, err)
	handler := NewDeliveryHandler(application.NewService(repo, nil), nil, WithProcessedMessages(memory.NewIdempotencyStore()))

	value, err := json.Marshal(DeliveryDroppedOff{ShipmentID: "SHIP-4", Quantity: 5})
	require.NoError(t, err)
	first := kafkago.Message{Topic: DeliveryDroppedOffTopic, Partition: 1, Offset: 40, Value: value}
	require.NoError(t, handler.Handle(ctx, first))
	require.NoError(t, handler.Handle(ctx, first))

	order, err := repo.FindByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), order.QuantityDelivered)
	assert.Equal(t, domain.StatusWaitingForDelivery, order.Status)

	require.NoError(t, handler.Handle(ctx, kafkago.Message{Topic: DeliveryDroppedOffTopic, Partition: 1, Offset: 41, Value: value}))
	order, err = repo.FindByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(10), order.QuantityDelivered)
	assert.Equal(t, domain.StatusDelivered, order.Status)
}
