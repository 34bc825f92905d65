package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
)

const (
	HeaderProxySignature = "X-Shopify-Hmac-Sha256"
	HeaderShopDomain     = "X-Shopify-Shop-Domain"
	QueryShop            = "shop"
)

// ProxyPayload is the signed form of a proxy request: method, path, raw shop
// header and sorted query string, one per line, followed by the raw body.
// Every input the service derives a shop or a customer from is covered, so a
// signature captured for one request cannot be replayed with other parameters.
func ProxyPayload(method, path, shopHeader string, query url.Values, body []byte) []byte {
	var b strings.Builder
	b.Grow(len(method) + len(path) + len(shopHeader) + len(body) + 64)
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(shopHeader))
	b.WriteByte('\n')
	b.WriteString(query.Encode())
	b.WriteByte('\n')
	b.Write(body)
	return []byte(b.String())
}

// SignBody returns base64(HMAC-SHA256(secret, payload)).
func SignBody(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignRequest signs the ProxyPayload of the given request parts.
func SignRequest(secret, method, path, shopHeader string, query url.Values, body []byte) string {
	return SignBody(secret, ProxyPayload(method, path, shopHeader, query, body))
}

// VerifyProxySignature checks the claimed signature over payload.
// An empty secret is a configuration error, never an auth failure.
func VerifyProxySignature(payload []byte, signature, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return pkgerrors.New(pkgerrors.CodeConfiguration, "proxy shared secret is not configured")
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing proxy signature")
	}
	claimed, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "malformed proxy signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if subtle.ConstantTimeCompare(mac.Sum(nil), claimed) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid proxy signature")
	}
	return nil
}

// ResolveShopDomain picks the shop scope from, in order, the shop header, the
// shop query parameter and the "shop" field of a JSON body.
func ResolveShopDomain(header, query string, body []byte) (string, error) {
	candidate := strings.TrimSpace(header)
	if candidate == "" {
		candidate = strings.TrimSpace(query)
	}
	if candidate == "" {
		candidate = shopFromBody(body)
	}
	if candidate == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shop domain is required")
	}
	return NormalizeShopDomain(candidate)
}

// NormalizeShopDomain lowercases and trims raw and rejects values carrying a
// scheme or path, or lacking a domain suffix.
func NormalizeShopDomain(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case trimmed == "":
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shop domain is required")
	case strings.Contains(trimmed, "://"):
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shop domain must not include scheme")
	case strings.Contains(trimmed, "/"):
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shop domain must not include path")
	case !strings.Contains(trimmed, "."):
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shop domain must include a domain suffix")
	}
	return trimmed, nil
}

func shopFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Shop any `json:"shop"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	shop, _ := payload.Shop.(string)
	return strings.TrimSpace(shop)
}
