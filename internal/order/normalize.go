package order

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/agriteranga/storefront/internal/delivery"
)

// Normalizer converts heterogeneous backend order payloads into the canonical
// Order shape. It is pure given its two tables, never panics on missing or
// malformed fields, and is idempotent: normalizing the JSON form of a
// normalized order yields the same order.
type Normalizer struct {
	Fees     delivery.FeeTable
	Statuses StatusTable
}

// NewNormalizer returns a Normalizer using the default fee and status tables.
func NewNormalizer() Normalizer {
	return Normalizer{
		Fees:     delivery.DefaultFeeTable(),
		Statuses: DefaultStatusTable(),
	}
}

// NormalizeJSON decodes a raw backend payload and normalizes it.
func (n Normalizer) NormalizeJSON(data []byte) (Order, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return Order{}, errors.Wrap(err, "decode order payload")
	}
	return n.Normalize(raw), nil
}

// Normalize maps a decoded backend order payload onto the canonical Order.
//
// Amount resolution follows the recompute-when-untrusted rule: the backend
// subtotal is used when finite and positive, otherwise Σ(quantity×unitPrice)
// over the resolved lines; the backend fee is used when finite and
// non-negative, otherwise derived from the delivery method and city table;
// the backend total is used when finite and positive, otherwise
// subtotal + fee. A derived total therefore always equals subtotal + fee.
func (n Normalizer) Normalize(raw map[string]any) Order {
	items := n.normalizeItems(raw)
	info := normalizeDeliveryInfo(raw)

	computed := decimal.Zero
	for _, it := range items {
		computed = computed.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	totalsObj := getMap(raw, "totals", "recap", "montants")

	subtotal, ok := pickAmount(totalsObj, raw, []string{"subtotal", "sousTotal", "productsTotal", "totalProduits"})
	if !ok {
		// Some backends only report a grand total; treat it as the products
		// total when no subtotal field exists at all.
		subtotal, ok = pickAmount(totalsObj, raw, []string{"total", "montantTotal"})
	}
	if !ok || !subtotal.IsPositive() {
		subtotal = computed
	}

	fee, ok := pickAmount(totalsObj, raw, []string{"deliveryFee", "fraisLivraison", "shippingFee"})
	if !ok || fee.IsNegative() {
		fee = n.Fees.Fee(info)
	}

	total, ok := pickAmount(totalsObj, raw, []string{"total", "totalToPay", "totalAPayer", "montantTotal"})
	if !ok || !total.IsPositive() {
		total = subtotal.Add(fee)
	}

	o := Order{
		OrderNumber:  getStr(raw, "orderNumber", "numeroCommande", "numero", "orderNo", "reference", "id", "_id"),
		CreatedAt:    parseTime(raw, "createdAt", "created_at", "dateCommande", "orderDate", "date"),
		Status:       n.Statuses.Map(getStr(raw, "status", "statut", "etat")),
		Items:        items,
		Totals:       Totals{Subtotal: subtotal, DeliveryFee: fee, Total: total},
		DeliveryInfo: info,
		Deliverer:    normalizeDeliverer(raw),
		AssignmentID: getStr(raw, "assignmentId", "deliveryId", "livraisonId", "assignment_id", "delivery_id"),
	}
	return o
}

// normalizeItems extracts the line-item array from any of the known field
// names and resolves each line with graceful fallback chains. Quantity
// defaults to 1 and price to 0 when absent.
func (n Normalizer) normalizeItems(raw map[string]any) []Item {
	lines := getSlice(raw, "items", "produits", "orderItems", "lignes", "products")
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		m, ok := l.(map[string]any)
		if !ok {
			continue
		}
		nested := getMap(m, "product", "produit")

		name := getStr(m, "name", "nom", "productName", "product_name", "titre")
		if name == "" && nested != nil {
			name = getStr(nested, "name", "nom", "titre")
		}

		qty := 1
		if q, ok := getNum(m, "quantity", "quantite", "qty", "qte"); ok && q.IntPart() > 0 {
			qty = int(q.IntPart())
		}

		price, ok := getNum(m, "unitPrice", "prixUnitaire", "unit_price", "price", "prix")
		if !ok && nested != nil {
			price, ok = getNum(nested, "price", "prix", "unitPrice")
		}
		if !ok || price.IsNegative() {
			price = decimal.Zero
		}

		img := getImage(m)
		if img == "" && nested != nil {
			img = getImage(nested)
		}

		items = append(items, Item{Name: name, Quantity: qty, UnitPrice: price, ImageURL: img})
	}
	return items
}

func normalizeDeliveryInfo(raw map[string]any) delivery.Info {
	m := getMap(raw, "deliveryInfo", "livraison", "delivery", "infosLivraison")
	if m == nil {
		return delivery.Info{}
	}
	method, err := delivery.ParseMethod(getStr(m, "method", "mode", "type"))
	if err != nil {
		return delivery.Info{}
	}
	info := delivery.Info{Method: method}
	switch method {
	case delivery.MethodHomeDelivery:
		info.City = getStr(m, "city", "ville")
		info.PostalCode = getStr(m, "postalCode", "codePostal", "postal_code")
	default:
		info.Location = getStr(m, "location", "lieu", "pointRelais", "ferme")
	}
	return info
}

// normalizeDeliverer probes the known locations for a deliverer object.
// It returns nil when no deliverer is assigned; enrichment through the
// delivery-assignment lookup is the Tracker's concern.
func normalizeDeliverer(raw map[string]any) *Deliverer {
	m := getMap(raw, "deliverer", "livreur", "courier", "driver")
	if m == nil {
		if parent := getMap(raw, "delivery", "livraison", "assignment"); parent != nil {
			m = getMap(parent, "deliverer", "livreur", "courier", "driver")
		}
	}
	if m == nil {
		return nil
	}
	d := &Deliverer{
		Name:     getStr(m, "name", "nom", "fullName"),
		Phone:    getStr(m, "phone", "telephone", "tel"),
		PhotoURL: getStr(m, "photoUrl", "photo", "avatar"),
	}
	if d.Name == "" && d.Phone == "" {
		return nil
	}
	return d
}

// ParseDeliverer probes raw for a deliverer, accepting both the nested order
// shapes and the flat shape of the delivery-assignment endpoint. It returns
// nil when no identifiable deliverer is present.
func ParseDeliverer(raw map[string]any) *Deliverer {
	if d := normalizeDeliverer(raw); d != nil {
		return d
	}
	d := &Deliverer{
		Name:     getStr(raw, "name", "nom", "fullName"),
		Phone:    getStr(raw, "phone", "telephone", "tel"),
		PhotoURL: getStr(raw, "photoUrl", "photo", "avatar"),
	}
	if d.Name == "" && d.Phone == "" {
		return nil
	}
	return d
}

// --- Raw payload decoding ---

// DecodeRaw decodes a JSON object into a generic map using jx. Numbers are
// decoded as float64, matching what the probing helpers expect.
func DecodeRaw(data []byte) (map[string]any, error) {
	d := jx.DecodeBytes(data)
	v, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Errorf("expected JSON object, got %T", v)
	}
	return m, nil
}

// DecodeRawArray decodes a JSON array of objects, skipping non-object elements.
func DecodeRawArray(data []byte) ([]map[string]any, error) {
	d := jx.DecodeBytes(data)
	v, err := decodeValue(d)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, errors.Errorf("expected JSON array, got %T", v)
	}
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func decodeValue(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.Object:
		m := map[string]any{}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			m[key] = v
			return nil
		})
		return m, err
	case jx.Array:
		var arr []any
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			arr = append(arr, v)
			return nil
		})
		return arr, err
	case jx.String:
		return d.Str()
	case jx.Number:
		num, err := d.Num()
		if err != nil {
			return nil, err
		}
		return num.Float64()
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	default:
		return nil, errors.Errorf("unexpected JSON token %v", d.Next())
	}
}

// --- Probing helpers ---

// getStr returns the first non-empty string found under keys. Numeric values
// are formatted, so numeric backend IDs still resolve as display strings.
func getStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v == math.Trunc(v) {
				return fmt.Sprintf("%.0f", v)
			}
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// getNum returns the first finite numeric value found under keys.
func getNum(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			return decimal.NewFromFloat(v), true
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func getMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

func getSlice(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if v, ok := m[k].([]any); ok {
			return v
		}
	}
	return nil
}

// getImage resolves an image URL that may be a plain string or an object
// holding size variants.
func getImage(m map[string]any) string {
	if s := getStr(m, "imageUrl", "image", "photo", "img"); s != "" {
		return s
	}
	if im := getMap(m, "image", "photo"); im != nil {
		return getStr(im, "thumbnail", "url", "mobile", "desktop")
	}
	return ""
}

// pickAmount probes the nested totals object first, then the top level.
func pickAmount(totals, raw map[string]any, keys []string) (decimal.Decimal, bool) {
	if totals != nil {
		if d, ok := getNum(totals, keys...); ok {
			return d, true
		}
	}
	return getNum(raw, keys...)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime resolves a creation timestamp from string layouts or an epoch
// value in milliseconds. Missing or unparseable values yield the zero time.
func parseTime(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, v); err == nil {
					return t
				}
			}
		case float64:
			if v > 0 {
				return time.UnixMilli(int64(v)).UTC()
			}
		}
	}
	return time.Time{}
}
