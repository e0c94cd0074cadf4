package model

// EventTypePickupDetected is the only event type a PickupEvent carries.
const EventTypePickupDetected = "PICKUP_DETECTED"

const DefaultCurrency = "USD"

// SearchSeed holds the detector hints used to build a search query.
type SearchSeed struct {
	VisibleText       []string `json:"visible_text"`
	BrandHint         string   `json:"brand_hint,omitempty"`
	CategoryHint      string   `json:"category_hint,omitempty"`
	VisualDescription string   `json:"visual_description,omitempty"`
}

// PickupEvent is a normalized "user picked up a product" signal.
type PickupEvent struct {
	EventID    string     `json:"event_id" validate:"required"`
	EventType  string     `json:"event_type" validate:"required,eq=PICKUP_DETECTED"`
	Confidence float64    `json:"confidence" validate:"gte=0,lte=1"`
	FrameRef   string     `json:"frame_ref" validate:"required"`
	SearchSeed SearchSeed `json:"search_seed"`
}

type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func ZeroPrice() Price {
	return Price{Amount: 0, Currency: DefaultCurrency}
}

type ProductSpec struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExtractedProduct is what the extraction tool pulls out of a product page.
type ExtractedProduct struct {
	Title     string        `json:"title"`
	ImageURL  string        `json:"image_url"`
	Price     Price         `json:"price"`
	Specs     []ProductSpec `json:"specs"`
	SourceURL string        `json:"source_url"`
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Alternative is a competing listing shown next to the top match.
type Alternative struct {
	Title     string `json:"title"`
	Price     Price  `json:"price"`
	ImageURL  string `json:"image_url"`
	Reason    string `json:"reason"`
	SourceURL string `json:"source_url,omitempty"`
}

type CompetitorPrice struct {
	Site  string `json:"site"`
	Price string `json:"price"`
}

type ValueScore string

const (
	ValueScoreBuy   ValueScore = "buy"
	ValueScoreHold  ValueScore = "hold"
	ValueScoreAvoid ValueScore = "avoid"
)

func (v ValueScore) Valid() bool {
	switch v {
	case ValueScoreBuy, ValueScoreHold, ValueScoreAvoid:
		return true
	}
	return false
}

// PurchaseRequest names the product to buy. Product is the latest known
// listing for it and may be nil.
type PurchaseRequest struct {
	ProductID string
	Product   *ExtractedProduct
}

// PurchaseResult is returned by the optional buy tool.
type PurchaseResult struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message"`
}

const (
	PurchaseStatusOK     = "ok"
	PurchaseStatusFailed = "failed"
)
