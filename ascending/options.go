package ascending

// Options holds the tuning knobs spec.md §9 names explicitly as knobs,
// not invariants: "BACKOFF_EXCLUSION = 16, MAX_IN_FLIGHT = 1,
// MAX_BLOCKS_PER_REQUEST ∈ {1, 16, 256} across iterations — pick values,
// expose them, treat them as tuning knobs."
type Options struct {
	// MaxInFlight bounds how many concurrent bulk_pull request/response
	// cycles one Attempt runs at once.
	MaxInFlight int

	// MaxBlocksPerRequest is the count field of each bulk_pull request.
	MaxBlocksPerRequest uint32

	// StatsInterval is how many requests elapse between observability
	// dumps (spec.md §4.5.1: "every N=10 000 requests"). Zero disables
	// periodic dumps entirely.
	StatsInterval int

	// ForwardSendDestination controls whether a send's destination
	// account is forwarded alongside the sender when a send progresses.
	// spec.md §9 flags this as historically disputed between iterations
	// of the reference source; the source's final iteration forwards
	// unconditionally, which is this field's default.
	ForwardSendDestination bool
}

// DefaultOptions returns spec.md's chosen tuning values.
func DefaultOptions() Options {
	return Options{
		MaxInFlight:            1,
		MaxBlocksPerRequest:    16,
		StatsInterval:          10000,
		ForwardSendDestination: true,
	}
}
