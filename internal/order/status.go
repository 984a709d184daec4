package order

import "strings"

// Status is the closed set of display states shown to customers.
type Status string

const (
	StatusPending   Status = "En attente"
	StatusPreparing Status = "En préparation"
	StatusInTransit Status = "En route"
	StatusDelivered Status = "Livré"
	StatusCancelled Status = "Annulé"
)

// StatusTable maps lower-cased raw backend status codes onto display states.
// The mapping is one-way: raw codes collapse onto the display set, and the
// display values themselves map to themselves so that normalization is
// idempotent. Unrecognized codes fall back to StatusPending.
type StatusTable map[string]Status

// DefaultStatusTable returns the standard backend-to-display status mapping.
func DefaultStatusTable() StatusTable {
	return StatusTable{
		"pending":        StatusPending,
		"new":            StatusPending,
		"created":        StatusPending,
		"processing":     StatusPreparing,
		"preparing":      StatusPreparing,
		"confirmed":      StatusPreparing,
		"accepted":       StatusPreparing,
		"assigned":       StatusInTransit,
		"in-transit":     StatusInTransit,
		"in_transit":     StatusInTransit,
		"shipping":       StatusInTransit,
		"shipped":        StatusInTransit,
		"delivered":      StatusDelivered,
		"completed":      StatusDelivered,
		"cancelled":      StatusCancelled,
		"canceled":       StatusCancelled,
		"annule":         StatusCancelled,
		"en attente":     StatusPending,
		"en préparation": StatusPreparing,
		"en route":       StatusInTransit,
		"livré":          StatusDelivered,
		"annulé":         StatusCancelled,
	}
}

// Map resolves a raw backend status to its display state. The raw value is
// lower-cased and trimmed before lookup; anything unrecognized maps to
// StatusPending.
func (t StatusTable) Map(raw string) Status {
	if s, ok := t[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusPending
}
