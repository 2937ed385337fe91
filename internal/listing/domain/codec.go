package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record field names
const (
	FieldName             = "name"
	FieldQuantity         = "quantity"
	FieldRate             = "rate"
	FieldLocation         = "location"
	FieldCategory         = "category"
	FieldSellerIdentity   = "seller_identity"
	FieldSellerName       = "seller_name"
	FieldSellerContact    = "seller_contact"
	FieldCreatedAt        = "created_at"
	FieldPurchaseRequests = "purchase_requests"

	fieldRequestID         = "request_id"
	fieldBuyerName         = "buyer_name"
	fieldBuyerContact      = "buyer_contact"
	fieldDeliveryAddress   = "delivery_address"
	fieldRequestedQuantity = "requested_quantity"
	fieldAcceptedQuantity  = "accepted_quantity"
	fieldStatus            = "status"
	fieldRequestedAt       = "requested_at"
)

// EncodeListing turns a listing into the record persisted by the store
func EncodeListing(l Listing) Record {
	return Record{
		FieldName:             l.Name,
		FieldQuantity:         l.QuantityAvailable,
		FieldRate:             l.Rate,
		FieldLocation:         l.Location,
		FieldCategory:         string(l.Category),
		FieldSellerIdentity:   l.SellerIdentity,
		FieldSellerName:       l.SellerDisplayName,
		FieldSellerContact:    l.SellerContact,
		FieldCreatedAt:        l.CreatedAt.UTC().UnixMilli(),
		FieldPurchaseRequests: EncodeRequests(l.PurchaseRequests),
	}
}

// EncodeRequests encodes the request list as a slice of records
func EncodeRequests(requests []PurchaseRequest) []any {
	out := make([]any, 0, len(requests))
	for _, r := range requests {
		out = append(out, map[string]any{
			fieldRequestID:         r.RequestID,
			fieldBuyerName:         r.BuyerName,
			fieldBuyerContact:      r.BuyerContact,
			fieldDeliveryAddress:   r.DeliveryAddress,
			fieldRequestedQuantity: r.RequestedQuantity,
			fieldAcceptedQuantity:  r.AcceptedQuantity,
			fieldStatus:            string(r.Status),
			fieldRequestedAt:       r.RequestedAt.UTC().UnixMilli(),
		})
	}
	return out
}

// DecodeListing converts a stored document into a Listing.
//
// Missing or mistyped fields decode to zero values and unknown categories fall back
// to DefaultCategory; only a document without id or fields is rejected.
func DecodeListing(doc Document) (Listing, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return Listing{}, fmt.Errorf("decode listing: missing id")
	}
	if doc.Fields == nil {
		return Listing{}, fmt.Errorf("decode listing %s: no fields", doc.ID)
	}
	r := doc.Fields
	l := Listing{
		ID:                doc.ID,
		Name:              stringField(r, FieldName),
		QuantityAvailable: intField(r, FieldQuantity),
		Rate:              intField(r, FieldRate),
		Location:          stringField(r, FieldLocation),
		Category:          CategoryOrDefault(stringField(r, FieldCategory)),
		SellerIdentity:    stringField(r, FieldSellerIdentity),
		SellerDisplayName: stringField(r, FieldSellerName),
		SellerContact:     stringField(r, FieldSellerContact),
		CreatedAt:         timeField(r, FieldCreatedAt),
		PurchaseRequests:  decodeRequests(r[FieldPurchaseRequests]),
		Revision:          doc.Revision,
	}
	if l.QuantityAvailable < 0 {
		l.QuantityAvailable = 0
	}
	return l, nil
}

func decodeRequests(v any) []PurchaseRequest {
	var items []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		items = t
	case []map[string]any:
		for _, m := range t {
			items = append(items, m)
		}
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(t), &items); err != nil {
			return nil
		}
	case []byte:
		if err := json.Unmarshal(t, &items); err != nil {
			return nil
		}
	default:
		return nil
	}

	requests := make([]PurchaseRequest, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := Record(m)
		status := RequestStatus(strings.ToUpper(stringField(rec, fieldStatus)))
		if status != RequestAccepted {
			status = RequestPending
		}
		requests = append(requests, PurchaseRequest{
			RequestID:         stringField(rec, fieldRequestID),
			BuyerName:         stringField(rec, fieldBuyerName),
			BuyerContact:      stringField(rec, fieldBuyerContact),
			DeliveryAddress:   stringField(rec, fieldDeliveryAddress),
			RequestedQuantity: intField(rec, fieldRequestedQuantity),
			AcceptedQuantity:  intField(rec, fieldAcceptedQuantity),
			Status:            status,
			RequestedAt:       timeField(rec, fieldRequestedAt),
		})
	}
	return requests
}

func stringField(r Record, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func intField(r Record, key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0
			}
			return int(f)
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func timeField(r Record, key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC()
		}
		return time.Time{}
	case nil:
		return time.Time{}
	default:
		ms := int64(intField(Record{"v": v}, "v"))
		if ms == 0 {
			return time.Time{}
		}
		return time.UnixMilli(ms).UTC()
	}
}
