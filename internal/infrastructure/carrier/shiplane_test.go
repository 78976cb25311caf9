package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
	"github.com/retailops/fulfillment/internal/infrastructure/config"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*ShiplaneAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	adapter := NewShiplaneAdapter(config.CarrierConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	}, zap.NewNop())
	return adapter, server
}

func envelope(t *testing.T, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(map[string]any{"success": true, "data": json.RawMessage(raw)})
	require.NoError(t, err)
	return out
}

func testAddr() valueobject.Address {
	return valueobject.MustNewAddress("Test", "1 Main St", "Town", "CA", "94105", "US")
}

func TestShiplaneGetRates(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rates", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["parcels"], 2)

		w.Write(envelope(t, []map[string]any{
			{"id": "r1", "carrier": "usps", "service": "priority", "amount": "14.20", "currency": "USD", "delivery_days": 3, "trackable": true},
			{"id": "r2", "carrier": "fedex", "service": "ground", "amount": "11.85", "currency": "USD", "delivery_days": 5, "trackable": true},
		}))
	})

	opts, err := adapter.GetRates(context.Background(), shipping.RateQuoteRequest{
		Origin:      testAddr(),
		Destination: testAddr(),
		Boxes: []shipping.PackageBox{
			{LengthIn: 12, WidthIn: 12, HeightIn: 12, WeightLb: 5},
			{LengthIn: 20, WidthIn: 10, HeightIn: 8, WeightLb: 9},
		},
	})

	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "usps", opts[0].Carrier)
	assert.Equal(t, "14.20 USD", opts[0].Cost.String())
	assert.True(t, opts[1].TrackingSupported)
}

func TestShiplaneGetRatesSkipsMalformed(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(t, []map[string]any{
			{"id": "bad", "carrier": "usps", "service": "priority", "amount": "not-a-number"},
			{"id": "good", "carrier": "usps", "service": "ground", "amount": "9.99", "delivery_days": 5},
		}))
	})

	opts, err := adapter.GetRates(context.Background(), shipping.RateQuoteRequest{
		Origin: testAddr(), Destination: testAddr(),
	})
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "good", opts[0].ID)
}

func TestShiplaneBookShipment(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/shipments", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rate-1", body["rate_id"])
		assert.Equal(t, true, body["signature"])

		w.Write(envelope(t, map[string]any{
			"tracking_number":    "TRK123",
			"label_url":          "https://labels.example/TRK123.pdf",
			"shipment_id":        "shp_42",
			"amount":             "14.20",
			"estimated_delivery": "2026-09-04T00:00:00Z",
		}))
	})

	insured, err := valueobject.NewMoneyUSDFromFloat(899)
	require.NoError(t, err)
	result, err := adapter.BookShipment(context.Background(), shipping.BookShipmentRequest{
		RateID:            "rate-1",
		Carrier:           "usps",
		Service:           "priority",
		Origin:            testAddr(),
		Destination:       testAddr(),
		InsuredValue:      insured,
		SignatureRequired: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "TRK123", result.TrackingNumber)
	assert.Equal(t, "shp_42", result.CarrierRef)
	require.NotNil(t, result.EstimatedDelivery)
}

func TestShiplaneErrorMapping(t *testing.T) {
	t.Run("carrier rejection maps to HTTP status code", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   map[string]string{"code": "invalid_address", "message": "address not found"},
			})
		})

		_, err := adapter.GetTracking(context.Background(), "TRK404")
		require.Error(t, err)
		ce, ok := shipping.AsCarrierError(err)
		require.True(t, ok)
		assert.Equal(t, "HTTP_422", ce.Code)
		assert.Contains(t, ce.Message, "address not found")
	})

	t.Run("unreachable carrier maps to network error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()
		adapter := NewShiplaneAdapter(config.CarrierConfig{BaseURL: server.URL}, zap.NewNop())

		_, err := adapter.GetRates(context.Background(), shipping.RateQuoteRequest{
			Origin: testAddr(), Destination: testAddr(),
		})
		require.Error(t, err)
		ce, ok := shipping.AsCarrierError(err)
		require.True(t, ok)
		assert.Equal(t, "NETWORK_ERROR", ce.Code)
	})

	t.Run("envelope failure without http error maps to bad gateway", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"success": false})
		})

		err := adapter.VoidShipment(context.Background(), "shp_1")
		ce, ok := shipping.AsCarrierError(err)
		require.True(t, ok)
		assert.Equal(t, "HTTP_502", ce.Code)
	})
}

func TestShiplaneGetTracking(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tracking/TRK123", r.URL.Path)
		w.Write(envelope(t, map[string]any{
			"tracking_number": "TRK123",
			"status":          "in_transit",
			"events": []map[string]any{
				{"status": "picked_up", "description": "Picked up", "location": "Oakland CA", "timestamp": "2026-08-27T09:00:00Z"},
				{"status": "in_transit", "description": "Departed facility", "location": "Reno NV", "timestamp": "2026-08-28T02:10:00Z"},
			},
		}))
	})

	info, err := adapter.GetTracking(context.Background(), "TRK123")
	require.NoError(t, err)
	assert.Equal(t, "in_transit", info.Status)
	require.Len(t, info.Events, 2)
	assert.Equal(t, "Reno NV", info.Events[1].Location)
	assert.False(t, info.Events[0].OccurredAt.IsZero())
}

func TestSignature(t *testing.T) {
	payload := []byte(`{"event_type":"delivered","tracking_number":"TRK1"}`)
	sig := SignPayload("secret", payload)

	assert.True(t, VerifySignature("secret", payload, sig))
	assert.False(t, VerifySignature("other", payload, sig))
	assert.False(t, VerifySignature("secret", []byte("tampered"), sig))
}
