package services

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

// clampPage applies the default and maximum page size and rejects negative
// offsets.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
