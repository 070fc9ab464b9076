// Package connection tracks the active duplex connection for each charge
// point and owns each connection's pending outbound call table.
//
// Exactly one Connection may exist per shortcode at a time; registering a
// new connection for the same shortcode replaces the prior entry. A
// connection's readiness only moves forward (connecting, open, closing,
// closed) and a closed entry is never resurrected - eviction removes it
// and fails any still-pending outbound calls with ErrNotConnected.
package connection
