package models

// APIType distinguishes how an endpoint is addressed in the settings store.
type APIType string

const (
	APITypeREST APIType = "rest"
)

// RateLimitConfig holds token bucket parameters for one limiter tier.
type RateLimitConfig struct {
	BucketSize      int `bson:"bucket_size" json:"bucket_size"`
	TokenRefillRate int `bson:"token_refill_rate" json:"token_refill_rate"` // tokens per second
}

// APIEndpointConfig holds per-endpoint overrides for the rate limiter.
type APIEndpointConfig struct {
	APIType       APIType          `bson:"api_type" json:"api_type"`
	Endpoint      string           `bson:"endpoint" json:"endpoint"`
	Authenticated bool             `bson:"authenticated" json:"authenticated"`
	RateLimitSoft *RateLimitConfig `bson:"rate_limit_soft,omitempty" json:"rate_limit_soft,omitempty"`
	RateLimitHard *RateLimitConfig `bson:"rate_limit_hard,omitempty" json:"rate_limit_hard,omitempty"`
}
