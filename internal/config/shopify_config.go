package config

import "strings"

// ShopifyConfig exposes the app credentials issued by the Shopify Partner
// dashboard. The API secret doubles as the HMAC key for OAuth callbacks and
// the signing key for embedded-app session tokens.
type ShopifyConfig interface {
	GetShopifyAPIKey() string
	GetShopifyAPISecret() string
	GetShopifyScopes() []string
}

type Shopify struct{}

var _ ShopifyConfig = Shopify{}

func (Shopify) GetShopifyAPIKey() string {
	return GetEnv("SHOPIFY_API_KEY", "")
}

func (Shopify) GetShopifyAPISecret() string {
	return GetEnv("SHOPIFY_API_SECRET", "")
}

func (Shopify) GetShopifyScopes() []string {
	scopes := GetEnv("SHOPIFY_SCOPES", "read_products,write_products")
	parts := strings.Split(scopes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
