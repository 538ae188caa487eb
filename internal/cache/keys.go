package cache

import (
	"fmt"
	"time"
)

const (
	RateLimitKeyPrefix    = "rl:%s:%s"
	RevokedTokenKeyPrefix = "auth:revoked:%s"
	PaymentSessionPrefix  = "payment:session:%s"
)

const (
	// PaymentSessionTTL bounds how long an initiated payment can be completed.
	PaymentSessionTTL = 2 * time.Hour
	// MinRevocationTTL keeps a revocation visible even for nearly expired tokens.
	MinRevocationTTL = time.Minute
)

func RateLimitKey(resource, id string) string {
	return fmt.Sprintf(RateLimitKeyPrefix, resource, id)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenKeyPrefix, jti)
}

func PaymentSessionKey(tranID string) string {
	return fmt.Sprintf(PaymentSessionPrefix, tranID)
}
