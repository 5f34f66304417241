package character

import (
	"fmt"
	"math"
)

// Scale is a current value out of a maximum, like hit points or experience.
type Scale struct {
	Current int
	Max     int
}

// Ratio returns Current/Max, or 0 when Max is 0.
func (s Scale) Ratio() float64 {
	if s.Max == 0 {
		return 0
	}
	return float64(s.Current) / float64(s.Max)
}

// Percentage returns the ratio as a percentage rounded to two decimals.
func (s Scale) Percentage() float64 {
	return math.Round(s.Ratio()*100*100) / 100
}

func (s Scale) IsFull() bool  { return s.Current == s.Max }
func (s Scale) IsEmpty() bool { return s.Current == 0 }

func (s Scale) String() string {
	return fmt.Sprintf("%d/%d (%.2f%%)", s.Current, s.Max, s.Percentage())
}

// Point is a position on the world map.
type Point struct {
	X int
	Y int
}

func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// Translate moves the point by dx, dy.
func (p Point) Translate(dx, dy int) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// Manhattan returns the L1 distance to o.
func (p Point) Manhattan(o Point) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

// Euclidean returns the straight-line distance to o.
func (p Point) Euclidean(o Point) float64 {
	return math.Hypot(float64(p.X-o.X), float64(p.Y-o.Y))
}

// DistanceToOrigin returns the straight-line distance to (0, 0).
func (p Point) DistanceToOrigin() float64 {
	return p.Euclidean(Point{})
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Inventory is the list of inventory slots, including empty ones.
type Inventory []Item

// Quantity returns how many of code the inventory holds. The second result
// is false when no slot holds the item at all, which lets callers tell
// "absent" from an explicit zero.
func (inv Inventory) Quantity(code string) (int, bool) {
	total, found := 0, false
	for _, it := range inv {
		if it.Code != code || code == "" {
			continue
		}
		total += it.Quantity
		found = true
	}
	return total, found
}

// Total returns the number of items across all slots.
func (inv Inventory) Total() int {
	total := 0
	for _, it := range inv {
		total += it.Quantity
	}
	return total
}

// Stacks returns the occupied slots in slot order.
func (inv Inventory) Stacks() []Item {
	var out []Item
	for _, it := range inv {
		if it.Code == "" || it.Quantity <= 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}
