// Package delivery defines the delivery method variants used at checkout and
// the city fee table that prices home deliveries.
package delivery

import (
	"strings"

	"github.com/go-faster/errors"
)

// Method enumerates the supported delivery methods.
type Method string

const (
	// MethodHomeDelivery ships to a city address; the fee comes from the city table.
	MethodHomeDelivery Method = "home-delivery"
	// MethodPickupPoint hands the order over at a partner pickup point, free of charge.
	MethodPickupPoint Method = "pickup-point"
	// MethodFarmPickup hands the order over directly at the producer's farm, free of charge.
	MethodFarmPickup Method = "farm-pickup"
)

// ErrUnknownMethod is returned when a delivery method value is not one of the
// three supported variants.
var ErrUnknownMethod = errors.New("unknown delivery method")

// Info is the discriminated delivery selection carried through checkout and
// attached to orders. Exactly one variant is populated: home deliveries carry
// City and PostalCode, both pickup variants carry Location.
type Info struct {
	Method     Method `json:"method"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Location   string `json:"location,omitempty"`
}

// ParseMethod maps a raw string onto a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.TrimSpace(strings.ToLower(s))) {
	case MethodHomeDelivery:
		return MethodHomeDelivery, nil
	case MethodPickupPoint:
		return MethodPickupPoint, nil
	case MethodFarmPickup:
		return MethodFarmPickup, nil
	}
	return "", errors.Wrapf(ErrUnknownMethod, "%q", s)
}

// Regions lists the cities selectable for home delivery.
var Regions = []string{
	"Dakar",
	"Pikine",
	"Guédiawaye",
	"Rufisque",
	"Thiès",
	"Mbour",
	"Saint-Louis",
	"Kaolack",
	"Touba",
	"Ziguinchor",
}

// PickupPoints lists the partner relay locations.
var PickupPoints = []string{
	"Marché Kermel - Dakar",
	"Marché Castors - Dakar",
	"Marché Central - Thiès",
	"Gare Routière - Kaolack",
	"Marché Ndar - Saint-Louis",
}

// FarmLocations lists the producer farms open for direct pickup.
var FarmLocations = []string{
	"Ferme de Sangalkam",
	"Ferme des Niayes - Rufisque",
	"Ferme de Noto Gouye Diama",
	"Coopérative de Méckhé",
}

// contains reports whether list holds value, comparing trimmed strings.
func contains(list []string, value string) bool {
	v := strings.TrimSpace(value)
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ValidRegion reports whether city is a selectable home-delivery region.
func ValidRegion(city string) bool { return contains(Regions, city) }

// ValidPickupPoint reports whether loc is a known relay location.
func ValidPickupPoint(loc string) bool { return contains(PickupPoints, loc) }

// ValidFarmLocation reports whether loc is a known producer farm.
func ValidFarmLocation(loc string) bool { return contains(FarmLocations, loc) }
