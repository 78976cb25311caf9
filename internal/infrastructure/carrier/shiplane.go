// Package carrier adapts the Shiplane HTTP API to the carrier gateway
// port. Shiplane is a multi-carrier aggregator: one integration covers
// parcel rating, LTL freight, label purchase, tracking and voiding.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shared/valueobject"
	"github.com/retailops/fulfillment/internal/domain/shipping"
	"github.com/retailops/fulfillment/internal/infrastructure/config"
)

// ShiplaneAdapter implements shipping.CarrierGateway against Shiplane
type ShiplaneAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewShiplaneAdapter creates a new ShiplaneAdapter
func NewShiplaneAdapter(cfg config.CarrierConfig, logger *zap.Logger) *ShiplaneAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShiplaneAdapter{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name identifies the carrier aggregator
func (a *ShiplaneAdapter) Name() string {
	return "shiplane"
}

// Wire types for the Shiplane API.

type shiplaneAddress struct {
	Name       string `json:"name"`
	Company    string `json:"company,omitempty"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"zip"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type shiplaneParcel struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

type shiplaneRate struct {
	ID           string `json:"id"`
	Carrier      string `json:"carrier"`
	Service      string `json:"service"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	DeliveryDays int    `json:"delivery_days"`
	Signature    bool   `json:"signature"`
	Insurance    bool   `json:"insurance"`
	Assembly     bool   `json:"assembly"`
	Trackable    bool   `json:"trackable"`
}

type shiplaneError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type shiplaneEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *shiplaneError  `json:"error,omitempty"`
}

func toShiplaneAddress(addr valueobject.Address) shiplaneAddress {
	return shiplaneAddress{
		Name:       addr.Name,
		Company:    addr.Company,
		Street1:    addr.Street1,
		Street2:    addr.Street2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
	}
}

func toShiplaneParcels(boxes []shipping.PackageBox) []shiplaneParcel {
	parcels := make([]shiplaneParcel, 0, len(boxes))
	for _, b := range boxes {
		parcels = append(parcels, shiplaneParcel{
			Length: b.LengthIn,
			Width:  b.WidthIn,
			Height: b.HeightIn,
			Weight: b.WeightLb,
		})
	}
	return parcels
}

func toRateOption(r shiplaneRate) (shipping.RateOption, error) {
	cost, err := valueobject.NewMoneyUSDFromString(r.Amount)
	if err != nil {
		return shipping.RateOption{}, fmt.Errorf("invalid rate amount %q: %w", r.Amount, err)
	}
	return shipping.RateOption{
		ID:                r.ID,
		Carrier:           r.Carrier,
		Service:           r.Service,
		Cost:              cost,
		EstimatedDays:     r.DeliveryDays,
		SignatureRequired: r.Signature,
		InsuranceIncluded: r.Insurance,
		AssemblyIncluded:  r.Assembly,
		TrackingSupported: r.Trackable,
	}, nil
}

// GetRates fetches parcel rates
func (a *ShiplaneAdapter) GetRates(ctx context.Context, req shipping.RateQuoteRequest) ([]shipping.RateOption, error) {
	body := map[string]any{
		"from":    toShiplaneAddress(req.Origin),
		"to":      toShiplaneAddress(req.Destination),
		"parcels": toShiplaneParcels(req.Boxes),
	}
	var rates []shiplaneRate
	if err := a.doRequest(ctx, http.MethodPost, "/v1/rates", body, &rates); err != nil {
		return nil, err
	}
	return a.toRateOptions(rates)
}

// GetFreightRates fetches LTL freight rates
func (a *ShiplaneAdapter) GetFreightRates(ctx context.Context, req shipping.FreightQuoteRequest) ([]shipping.RateOption, error) {
	body := map[string]any{
		"from":          toShiplaneAddress(req.Origin),
		"to":            toShiplaneAddress(req.Destination),
		"weight":        req.WeightLb,
		"freight_class": req.FreightClass,
		"white_glove":   req.WhiteGlove,
	}
	var rates []shiplaneRate
	if err := a.doRequest(ctx, http.MethodPost, "/v1/freight/rates", body, &rates); err != nil {
		return nil, err
	}
	return a.toRateOptions(rates)
}

func (a *ShiplaneAdapter) toRateOptions(rates []shiplaneRate) ([]shipping.RateOption, error) {
	opts := make([]shipping.RateOption, 0, len(rates))
	for _, r := range rates {
		opt, err := toRateOption(r)
		if err != nil {
			a.logger.Warn("Skipping malformed rate from carrier",
				zap.String("rate_id", r.ID),
				zap.Error(err))
			continue
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

type shiplaneShipment struct {
	TrackingNumber    string `json:"tracking_number"`
	LabelURL          string `json:"label_url"`
	ShipmentID        string `json:"shipment_id"`
	Amount            string `json:"amount"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
}

// BookShipment purchases a label for the selected rate
func (a *ShiplaneAdapter) BookShipment(ctx context.Context, req shipping.BookShipmentRequest) (*shipping.BookShipmentResult, error) {
	insured, _ := req.InsuredValue.Amount().Float64()
	body := map[string]any{
		"rate_id":   req.RateID,
		"carrier":   req.Carrier,
		"service":   req.Service,
		"from":      toShiplaneAddress(req.Origin),
		"to":        toShiplaneAddress(req.Destination),
		"parcels":   toShiplaneParcels(req.Boxes),
		"insurance": insured,
		"signature": req.SignatureRequired,
		"reference": req.Reference,
	}
	if req.IsGift {
		body["gift"] = true
	}
	if req.WhiteGlove {
		body["white_glove"] = true
	}
	if req.AssemblyRequired {
		body["assembly"] = true
	}
	var resp shiplaneShipment
	if err := a.doRequest(ctx, http.MethodPost, "/v1/shipments", body, &resp); err != nil {
		return nil, err
	}

	cost, err := valueobject.NewMoneyUSDFromString(resp.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid booking amount %q: %w", resp.Amount, err)
	}
	result := &shipping.BookShipmentResult{
		TrackingNumber: resp.TrackingNumber,
		LabelURL:       resp.LabelURL,
		CarrierRef:     resp.ShipmentID,
		Cost:           cost,
	}
	if resp.EstimatedDelivery != "" {
		if ts, err := time.Parse(time.RFC3339, resp.EstimatedDelivery); err == nil {
			result.EstimatedDelivery = &ts
		}
	}
	return result, nil
}

type shiplaneTrackingEvent struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Timestamp   string `json:"timestamp"`
}

type shiplaneTracking struct {
	TrackingNumber    string                  `json:"tracking_number"`
	Status            string                  `json:"status"`
	EstimatedDelivery string                  `json:"estimated_delivery,omitempty"`
	DeliveredAt       string                  `json:"delivered_at,omitempty"`
	Events            []shiplaneTrackingEvent `json:"events"`
}

// GetTracking fetches the current tracking state
func (a *ShiplaneAdapter) GetTracking(ctx context.Context, trackingNumber string) (*shipping.TrackingInfo, error) {
	var resp shiplaneTracking
	path := "/v1/tracking/" + trackingNumber
	if err := a.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	info := &shipping.TrackingInfo{
		TrackingNumber: resp.TrackingNumber,
		Status:         resp.Status,
	}
	if ts, err := time.Parse(time.RFC3339, resp.EstimatedDelivery); err == nil && resp.EstimatedDelivery != "" {
		info.EstimatedDelivery = &ts
	}
	if ts, err := time.Parse(time.RFC3339, resp.DeliveredAt); err == nil && resp.DeliveredAt != "" {
		info.DeliveredAt = &ts
	}
	for _, e := range resp.Events {
		event := shipping.TrackingEvent{
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
		}
		if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			event.OccurredAt = ts
		}
		info.Events = append(info.Events, event)
	}
	return info, nil
}

// VoidShipment cancels a purchased label
func (a *ShiplaneAdapter) VoidShipment(ctx context.Context, carrierRef string) error {
	path := fmt.Sprintf("/v1/shipments/%s/void", carrierRef)
	return a.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// doRequest performs one API call and decodes the response envelope.
// Transport failures map to NETWORK_ERROR; carrier rejections map to
// HTTP_<status> with the carrier's message when one is present.
func (a *ShiplaneAdapter) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return shipping.NewCarrierNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return shipping.NewCarrierNetworkError(err)
	}

	var envelope shiplaneEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return shipping.NewCarrierHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return fmt.Errorf("failed to decode carrier response: %w", err)
	}

	if resp.StatusCode >= 400 || !envelope.Success {
		message := http.StatusText(resp.StatusCode)
		if envelope.Error != nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		status := resp.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		a.logger.Warn("Carrier API rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return shipping.NewCarrierHTTPError(status, message)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode carrier payload: %w", err)
		}
	}
	return nil
}

var _ shipping.CarrierGateway = (*ShiplaneAdapter)(nil)
