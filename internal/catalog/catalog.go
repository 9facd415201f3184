// Package catalog holds the static tare lookup tables: box weight per product
// and tray weight per tray type. The tables are read-only at runtime; an
// unknown key is a programming error in the caller, not a runtime condition.
package catalog

import "sort"

// NoTray is the tray type with zero weight.
const NoTray = "Sin Bandeja"

// boxWeights maps product name to the weight in kg of one box of that product.
var boxWeights = map[string]float64{
	"CREMOSO LAS TRES ESTRELLAS":    0.35,
	"CREMOSO SABORLAC":              0.35,
	"CREMOSO MEDIA HORMA":           0.35,
	"POR SALUT LAS TRES ESTRELLAS":  0.35,
	"P.SALUT CON CHIA Y LINO":       0.4,
	"PROQUESO-FIT":                  0.4,
	"TYBO LAS TRES":                 0.4,
	"MUZZARELLA SABORLAC":           0.4,
	"MUZZARELLA LAS TRES ESTRELLAS": 0.4,
	"MOZZARELLA BLOCK":              0.4,
	"PATEGRAS SABORLAC":             0.35,
	"AZUL LAS TRES ESTRELLAS":       0.28,
	"CHEDDAR":                       0.4,
	"GRUYERITO EN CUÑA":             0.55,
	"ROMANITO":                      0.3,
	"SARDO LAS TRES ESTRELLAS":      0.3,
	"SARDO SABORLAC":                0.3,
	"REGGIANITO HORMA":              0.35,
	"REGGIANITO BLOCK":              0.4,
	"PROVOLONE HILADO":              0.35,
	"PROVOLONE HILADO EN FETAS":     0.35,
	"RICOTTA EN HORMA":              0.35,
	"RICOTTA CABRAL":                0.38,
	"SARDO SABORLAC BLOCK":          0.4,
}

// trayWeights maps tray type to the weight in kg of one tray.
var trayWeights = map[string]float64{
	"Bandeja de Cremoso": 1.7,
	"Bandeja de Barra":   1.4,
	"Bandeja de Sardo":   2.0,
	NoTray:               0.0,
}

// BoxWeight returns the per-box weight for a product and whether the product
// exists in the catalog.
func BoxWeight(product string) (float64, bool) {
	w, ok := boxWeights[product]
	return w, ok
}

// TrayWeight returns the per-tray weight for a tray type and whether the tray
// type exists in the catalog.
func TrayWeight(tray string) (float64, bool) {
	w, ok := trayWeights[tray]
	return w, ok
}

// Products returns all product names in sorted order.
func Products() []string {
	names := make([]string, 0, len(boxWeights))
	for name := range boxWeights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trays returns all tray type names in sorted order.
func Trays() []string {
	names := make([]string, 0, len(trayWeights))
	for name := range trayWeights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
