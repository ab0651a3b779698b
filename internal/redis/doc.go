// Package redis contains the Redis-backed vote aggregate cache and the
// pub/sub bridge used for cross-instance snapshot broadcast.
package redis
