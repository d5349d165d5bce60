// Package cache provides a small generic cache for values that are costly
// to build and cheap to keep, such as translated shader sources.
//
//	c := cache.New[key, string](8)
//	src, err := c.GetOrCreate(k, func() (string, error) { return translate(k) })
//
// The cache has a soft limit: once it is exceeded, the least recently used
// quarter of the entries is evicted. A softLimit of 0 means unlimited.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
