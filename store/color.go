package store

import (
	"fmt"
	"math/rand/v2"
)

// RandomColor returns a "#rrggbb" colour with every channel in [100,255] so
// clusters stay readable against dark and light backgrounds.
func RandomColor() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(), channel(), channel())
}

func channel() int { return 100 + rand.IntN(156) }
