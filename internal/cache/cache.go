// Package cache define la abstracción de cache usada para settings de tenant.
//
// Backends: memory (in-process, dev/testing) y redis (distribuido, prod).
package cache

import "time"

type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
