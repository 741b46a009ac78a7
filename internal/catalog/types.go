package catalog

// LineItem is a purchased item on a Shopify order.
type LineItem struct {
	SKU   string `json:"sku"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// Order is the slice of a Shopify order the matcher needs.
type Order struct {
	ID          int64      `json:"id"`
	OrderNumber int        `json:"order_number"`
	CreatedAt   string     `json:"created_at"`
	LineItems   []LineItem `json:"line_items"`
}

// Match is the transient result of reconciling customer free text against
// recent order history. It is consumed once by the conversation engine and
// never persisted.
type Match struct {
	SKU         string
	Title       string
	Price       string
	OrderNumber string
	OrderID     string
	OrderDate   string // date-only, YYYY-MM-DD
}

// Product is a catalog product resolved by SKU or item number.
type Product struct {
	SKU               string   `json:"sku"`
	LibertyItemID     string   `json:"liberty_item_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ImageURL          string   `json:"image_url,omitempty"`
	Images            []string `json:"images,omitempty"`
	Price             string   `json:"price,omitempty"`
	InventoryQuantity *int     `json:"inventory_quantity,omitempty"`
	ProductID         string   `json:"shopify_product_id,omitempty"`
	VariantID         string   `json:"shopify_variant_id,omitempty"`
}
