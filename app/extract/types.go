package extract

type ItemKind string

const (
	KindMenu  ItemKind = "menu"
	KindPhoto ItemKind = "photo"
)

// Item is one extracted line for an establishment: either a menu line or a
// photo. Position reflects provider presentation order.
type Item struct {
	Kind     ItemKind
	Position int

	// Menu fields
	Name        string
	Description string
	PriceMinor  int64 // price in currency minor units, never negative
	Currency    string
	Category    string
	ImageURL    string

	// Photo fields
	SourceURL  string
	Width      int
	Height     int
	IsEnhanced bool
}
