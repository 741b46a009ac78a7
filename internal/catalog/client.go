package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultOrderWindow = 50

	queryProductLookup = `query ProductLookup($query: String!) {
  products(first: 10, query: $query) {
    edges {
      node {
        id
        title
        description
        featuredImage {
          url
        }
        images(first: 5) {
          edges {
            node {
              url
            }
          }
        }
        variants(first: 10) {
          edges {
            node {
              id
              sku
              barcode
              price
              inventoryQuantity
            }
          }
        }
      }
    }
  }
}`
)

// Client queries the Shopify Admin API for order history and product lookups.
// Every failure mode degrades to "no match": the conversation flow must keep
// moving even when the catalog is unreachable.
type Client struct {
	shopURL     string
	accessToken string
	apiVersion  string
	orderWindow int
	httpClient  *http.Client
	logger      *logging.Logger
}

// ClientConfig holds catalog client settings.
type ClientConfig struct {
	ShopURL     string
	AccessToken string
	APIVersion  string
	OrderWindow int
	Timeout     time.Duration
}

// NewClient creates a Shopify catalog client.
func NewClient(cfg ClientConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-01"
	}
	if cfg.OrderWindow <= 0 {
		cfg.OrderWindow = defaultOrderWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	shop := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(cfg.ShopURL, "https://"), "http://"), "/")
	return &Client{
		shopURL:     shop,
		accessToken: cfg.AccessToken,
		apiVersion:  cfg.APIVersion,
		orderWindow: cfg.OrderWindow,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// Configured reports whether catalog credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.shopURL != "" && c.accessToken != ""
}

func (c *Client) apiURL(endpoint string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/%s", c.shopURL, c.apiVersion, endpoint)
}

// SearchOrders scans the recent order window (most-recent-first) for a line
// item matching the customer's description. A nil Match means no match; errors
// are returned for observability but callers must treat them as no-match.
func (c *Client) SearchOrders(ctx context.Context, query string) (*Match, error) {
	if !c.Configured() {
		return nil, nil
	}

	url := fmt.Sprintf("%s?limit=%d&status=any", c.apiURL("orders.json"), c.orderWindow)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build orders request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: orders request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("catalog: decode orders: %w", err)
	}

	return FindOrderMatch(payload.Orders, query), nil
}

// LookupProduct resolves a SKU or item number to a product, trying each SKU
// candidate against the ordered query strategies until one yields a result.
func (c *Client) LookupProduct(ctx context.Context, sku string) (*Product, error) {
	if !c.Configured() {
		return nil, nil
	}

	for _, candidate := range CandidateSKUs(sku) {
		for _, query := range ProductQueries(candidate) {
			product, err := c.productQuery(ctx, candidate, query)
			if err != nil {
				return nil, err
			}
			if product != nil {
				return product, nil
			}
		}
	}
	return nil, nil
}

type graphQLResponse[T any] struct {
	Data   T `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type productLookupData struct {
	Products struct {
		Edges []struct {
			Node struct {
				ID            string `json:"id"`
				Title         string `json:"title"`
				Description   string `json:"description"`
				FeaturedImage *struct {
					URL string `json:"url"`
				} `json:"featuredImage"`
				Images struct {
					Edges []struct {
						Node struct {
							URL string `json:"url"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"images"`
				Variants struct {
					Edges []struct {
						Node struct {
							ID                string `json:"id"`
							SKU               string `json:"sku"`
							Barcode           string `json:"barcode"`
							Price             string `json:"price"`
							InventoryQuantity *int   `json:"inventoryQuantity"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"variants"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

func (c *Client) productQuery(ctx context.Context, sku, query string) (*Product, error) {
	body, err := json.Marshal(map[string]any{
		"query":     queryProductLookup,
		"variables": map[string]any{"query": query},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL("graphql.json"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("catalog: build graphql request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("catalog: graphql request returned status %d", resp.StatusCode)
	}

	var out graphQLResponse[productLookupData]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("catalog: decode graphql response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("catalog: graphql error: %s", out.Errors[0].Message)
	}
	if len(out.Data.Products.Edges) == 0 {
		return nil, nil
	}

	node := out.Data.Products.Edges[0].Node
	product := &Product{
		SKU:           sku,
		LibertyItemID: sku,
		Title:         node.Title,
		Description:   node.Description,
		ProductID:     lastPathSegment(node.ID),
	}

	var images []string
	if node.FeaturedImage != nil && node.FeaturedImage.URL != "" {
		images = append(images, node.FeaturedImage.URL)
	}
	for _, edge := range node.Images.Edges {
		if edge.Node.URL != "" && !contains(images, edge.Node.URL) {
			images = append(images, edge.Node.URL)
		}
	}
	product.Images = images
	if len(images) > 0 {
		product.ImageURL = images[0]
	}

	if len(node.Variants.Edges) > 0 {
		variant := node.Variants.Edges[0].Node
		if variant.SKU != "" {
			product.SKU = variant.SKU
		}
		if variant.Barcode != "" {
			product.LibertyItemID = variant.Barcode
		}
		product.Price = variant.Price
		product.InventoryQuantity = variant.InventoryQuantity
		product.VariantID = lastPathSegment(variant.ID)
	}

	return product, nil
}

func lastPathSegment(gid string) string {
	if idx := strings.LastIndex(gid, "/"); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
