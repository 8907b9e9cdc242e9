// SPDX-License-Identifier: MPL-2.0

// Command modsync deploys versioned ears, wars and modules into an
// application server.
package main

import cmd "github.com/modsync/modsync/cmd/modsync"

func main() {
	cmd.Execute()
}
