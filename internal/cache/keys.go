package cache

// Key prefixes shared by the components using the store.
const (
	PrefixCheckout     = "checkout:invoice:"
	PrefixRevokedToken = "revoked:jti:"
	PrefixRateLimit    = "ratelimit:"
)
