package checkout

import (
	"regexp"
	"strings"

	"github.com/agriteranga/storefront/internal/delivery"
)

var (
	phonePattern  = regexp.MustCompile(`^\+?[0-9][0-9 .()-]{6,19}$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	postalPattern = regexp.MustCompile(`^[A-Za-z0-9 -]{3,10}$`)
)

// Details is the delivery-details form captured before payment selection.
type Details struct {
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Email      string          `json:"email"`
	Method     delivery.Method `json:"method"`
	City       string          `json:"city,omitempty"`
	PostalCode string          `json:"postalCode,omitempty"`
	Location   string          `json:"location,omitempty"`
}

// FieldErrors maps a form field to its validation message. It doubles as an
// error so the flow can carry it through error returns.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// Validate checks the form per selected method. It returns nil when every
// field passes; failures never block each other, so the caller gets the full
// set of messages in one pass.
func (d Details) Validate() FieldErrors {
	errs := FieldErrors{}

	if len(strings.TrimSpace(d.Name)) < 2 {
		errs["name"] = "Le nom doit contenir au moins 2 caractères."
	}
	if !phonePattern.MatchString(strings.TrimSpace(d.Phone)) {
		errs["phone"] = "Numéro de téléphone invalide."
	}
	if !emailPattern.MatchString(strings.TrimSpace(d.Email)) {
		errs["email"] = "Adresse email invalide."
	}

	switch d.Method {
	case delivery.MethodHomeDelivery:
		if !delivery.ValidRegion(d.City) {
			errs["city"] = "Veuillez choisir une région de livraison."
		}
		if !postalPattern.MatchString(strings.TrimSpace(d.PostalCode)) {
			errs["postalCode"] = "Code postal invalide."
		}
	case delivery.MethodPickupPoint:
		if !delivery.ValidPickupPoint(d.Location) {
			errs["location"] = "Veuillez choisir un point de retrait."
		}
	case delivery.MethodFarmPickup:
		if !delivery.ValidFarmLocation(d.Location) {
			errs["location"] = "Veuillez choisir une ferme."
		}
	default:
		errs["method"] = "Mode de livraison inconnu."
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Info builds the delivery info carried forward once validation passed.
func (d Details) Info() delivery.Info {
	info := delivery.Info{Method: d.Method}
	switch d.Method {
	case delivery.MethodHomeDelivery:
		info.City = d.City
		info.PostalCode = strings.TrimSpace(d.PostalCode)
	default:
		info.Location = d.Location
	}
	return info
}
