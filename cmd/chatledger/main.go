// Command chatledger keeps a personal ledger from chat messages.
package main

import (
	"os"

	_ "time/tzdata"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
