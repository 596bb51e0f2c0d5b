package model

// TieUpItemType distinguishes how a tie-up item's allowed amount is
// computed at price-check time (spec.md §3, §4.F).
type TieUpItemType string

const (
	TieUpItemUnit    TieUpItemType = "unit"
	TieUpItemService TieUpItemType = "service"
	TieUpItemBundle  TieUpItemType = "bundle"
)

// TieUpItem is one canonical billable entry from a hospital's rate sheet.
type TieUpItem struct {
	ItemName string        `json:"item_name"`
	Rate     float64       `json:"rate"`
	Type     TieUpItemType `json:"type"`
}

// TieUpCategory groups tie-up items under a named category.
type TieUpCategory struct {
	CategoryName string      `json:"category_name"`
	Items        []TieUpItem `json:"items"`
}

// RateSheet is one hospital's full tie-up rate sheet, loaded from a JSON
// file named for the slug of HospitalName (spec.md §3, §6).
type RateSheet struct {
	HospitalName string          `json:"hospital_name"`
	Categories   []TieUpCategory `json:"categories"`
}
