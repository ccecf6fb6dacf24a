// Command evalharness sends a prompt through a chat client guarded by the
// evaluation harness: a judge model scores every answer and the prompt is
// retried with feedback until the answer passes or attempts run out.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
