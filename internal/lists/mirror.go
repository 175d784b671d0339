package lists

import (
	"strconv"

	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	"github.com/mercadito-app/mercadito-backend/pkg/types"
)

// BuildMirror projects a list's items into the document the shelf display
// polls. Unchecked items land in toPick, checked items in picked, both in the
// order the items were added. The projection is pure, so recomputing it from
// the same snapshot always yields the same document.
func BuildMirror(state enums.ListState, items []models.ListItem) types.MirrorDocument {
	doc := types.MirrorDocument{
		State:  state.String(),
		ToPick: []types.MirrorEntry{},
		Picked: []types.MirrorEntry{},
	}
	if !state.IsValid() {
		doc.State = enums.ListStateScanning.String()
	}

	for _, item := range items {
		entry := types.MirrorEntry{
			BarCode:  item.BarCode,
			Name:     item.Name,
			Price:    priceValue(item.Price),
			Quantity: item.Quantity,
		}
		if item.Checked {
			doc.Picked = append(doc.Picked, entry)
		} else {
			doc.ToPick = append(doc.ToPick, entry)
		}
	}

	return doc
}

// priceValue converts the stored decimal string for the device payload. The
// firmware consumes plain JSON numbers.
func priceValue(price string) float64 {
	if price == "" {
		return 0
	}
	value, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return 0
	}
	return value
}
