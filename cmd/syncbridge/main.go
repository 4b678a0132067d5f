// Syncbridge CLI entry point
//
// Syncbridge (sb) is an offline-resilience layer for client applications.
// It serves reads from a last-known-good snapshot cache while the network
// is down and captures writes as pending actions that replay automatically,
// in order, once connectivity returns.
package main

import "github.com/jbctechsolutions/syncbridge/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
