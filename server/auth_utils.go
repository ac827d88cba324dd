package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var shopDomainRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a plausible *.myshopify.com domain.
// Everything reaching the OAuth or session layer goes through this gate, so
// a hostile shop parameter can never become a redirect target.
func ValidShopDomain(shop string) bool {
	return shopDomainRe.MatchString(shop)
}

// VerifyHMAC checks the hmac parameter Shopify appends to OAuth callback
// query strings: the remaining parameters, sorted and joined as k=v pairs
// with '&', are signed with HMAC-SHA256 under the app's API secret.
func VerifyHMAC(values url.Values, secret string) bool {
	signature := values.Get("hmac")
	if signature == "" {
		return false
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hmac" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strings.Join(values[k], ","))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
