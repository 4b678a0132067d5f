package ports

// ConnectivityListener is notified once per genuine online/offline
// transition. Listeners run outside the monitor's lock and must return
// promptly.
type ConnectivityListener func(online bool)

// ConnectivityPort observes the runtime's network state. Implementations
// deduplicate redundant signals so subscribers see exactly one callback per
// transition.
type ConnectivityPort interface {
	// IsOnline returns the current connectivity state.
	IsOnline() bool

	// Subscribe registers a listener and returns an unsubscribe function.
	Subscribe(listener ConnectivityListener) (unsubscribe func())

	// SetOnline forces the connectivity state, going through the same
	// deduplication path as observed signals. Used by the CLI override and
	// by tests.
	SetOnline(online bool)
}
