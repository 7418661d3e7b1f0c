// Command statehistory operates state history stores: it applies migrations,
// validates declarations, inspects and moves object states, and serves the HTTP API.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
