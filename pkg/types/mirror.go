package types

// MirrorEntry is the denormalized item snapshot consumed by the shelf display
// firmware. Field names and the three-value state enum in MirrorDocument are a
// wire contract with the device; do not rename them.
type MirrorEntry struct {
	BarCode  string  `json:"barCode"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// MirrorDocument is the simplified list projection the device polls.
type MirrorDocument struct {
	State  string        `json:"state"`
	ToPick []MirrorEntry `json:"toPick"`
	Picked []MirrorEntry `json:"picked"`
}
