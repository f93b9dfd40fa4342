package market

// Symbol identifies one tradable instrument.
type Symbol struct {
	ID     uint32
	Ticker string
}
