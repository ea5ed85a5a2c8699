package market

// Position is a holding reported by the account query: instrument code, the
// venue's display name for it, and the quantity currently held.
type Position struct {
	Instrument string
	Name       string
	Quantity   int64
}

// TotalQuantity sums the held quantity across positions.
func TotalQuantity(positions []Position) int64 {
	var total int64
	for _, p := range positions {
		total += p.Quantity
	}
	return total
}
