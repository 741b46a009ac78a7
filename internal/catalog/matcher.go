package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// InStorePickupSKU marks placeholder line items for in-store pickups. It is
// never a valid match candidate.
const InStorePickupSKU = "pickup-instore"

// TitleMatches reports whether a line-item title plausibly describes the
// customer's free text: case-insensitive substring containment, or any
// whitespace-delimited word of the query appearing in the title.
func TitleMatches(title, query string) bool {
	title = strings.ToLower(title)
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return false
	}
	if strings.Contains(title, query) {
		return true
	}
	for _, word := range strings.Fields(query) {
		if strings.Contains(title, word) {
			return true
		}
	}
	return false
}

// FindOrderMatch scans orders (assumed most-recent-first) for the first line
// item whose title matches the query. First match wins; there is no ranking
// beyond order recency.
func FindOrderMatch(orders []Order, query string) *Match {
	for _, order := range orders {
		for _, item := range order.LineItems {
			if item.SKU == InStorePickupSKU {
				continue
			}
			if !TitleMatches(item.Title, query) {
				continue
			}
			date := order.CreatedAt
			if len(date) > 10 {
				date = date[:10]
			}
			return &Match{
				SKU:         item.SKU,
				Title:       item.Title,
				Price:       item.Price,
				OrderNumber: strconv.Itoa(order.OrderNumber),
				OrderID:     strconv.FormatInt(order.ID, 10),
				OrderDate:   date,
			}
		}
	}
	return nil
}

// CandidateSKUs expands a scanned or typed SKU into lookup candidates, in the
// order they should be tried. Barcode scanners prepend zeros, and bare item
// numbers like "363068" are often stored as "3630-68" or "363-068".
func CandidateSKUs(sku string) []string {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil
	}
	candidates := []string{sku}

	stripped := strings.TrimLeft(sku, "0")
	if stripped != "" && stripped != sku {
		candidates = append(candidates, stripped)
	}

	if isAllDigits(stripped) && len(stripped) >= 4 {
		switch len(stripped) {
		case 6:
			candidates = append(candidates,
				fmt.Sprintf("%s-%s", stripped[:4], stripped[4:]),
				fmt.Sprintf("%s-%s", stripped[:3], stripped[3:]))
		case 7:
			candidates = append(candidates, fmt.Sprintf("%s-%s", stripped[:4], stripped[4:]))
		}
	}

	return candidates
}

// ProductQueries returns the ordered Shopify search queries for one SKU
// candidate: exact SKU field, barcode field, product title, then a general
// search. The first query that yields a product wins.
func ProductQueries(sku string) []string {
	return []string{
		"sku:" + sku,
		"barcode:" + sku,
		"title:" + sku,
		sku,
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
