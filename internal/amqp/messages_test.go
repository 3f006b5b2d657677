package amqp

import (
	"testing"
	"time"
)

func TestTransactionEventRoundTrip(t *testing.T) {
	e := NewTransactionEvent("tx-123", "user@example.com", ActionCreated)
	if e.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "tx-123" || got.User != "user@example.com" || got.Action != ActionCreated {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(e.Timestamp.Truncate(time.Nanosecond)) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.Timestamp, e.Timestamp)
	}
}

func TestTransactionEventFromJSONInvalid(t *testing.T) {
	if _, err := TransactionEventFromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}
