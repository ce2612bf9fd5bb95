// Package catalog holds storefront categories. Category icons are a closed
// set checked when the category is written, never looked up by name at render time.
package catalog

import (
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

type Icon string

const (
	IconLeaf     Icon = "leaf"
	IconDroplet  Icon = "droplet"
	IconSparkles Icon = "sparkles"
	IconFlower   Icon = "flower"
	IconSun      Icon = "sun"
	IconHeart    Icon = "heart"
	IconGift     Icon = "gift"
	IconPackage  Icon = "package"
)

// Icons in display order.
var Icons = []Icon{IconLeaf, IconDroplet, IconSparkles, IconFlower, IconSun, IconHeart, IconGift, IconPackage}

// glyphs is what the storefront renders for each icon.
var glyphs = map[Icon]string{
	IconLeaf:     "🌿",
	IconDroplet:  "💧",
	IconSparkles: "✨",
	IconFlower:   "🌸",
	IconSun:      "☀️",
	IconHeart:    "❤️",
	IconGift:     "🎁",
	IconPackage:  "📦",
}

func ParseIcon(s string) (Icon, error) {
	i := Icon(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := glyphs[i]; !ok {
		return "", &orders.ValidationError{Field: "icon", Reason: "is not a known icon"}
	}
	return i, nil
}

func (i Icon) Glyph() string { return glyphs[i] }
