package cache

// Stats counts cache events since construction.
type Stats struct {
	Hits          int
	Misses        int
	Expirations   int
	Invalidations int
	Evictions     int
}
