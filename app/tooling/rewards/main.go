// This program takes reward snapshots of ambassador delegations and builds
// the claims and merkle distribution paid out from them.
package main

import "github.com/ardanlabs/rewards/app/tooling/rewards/cmd"

func main() {
	cmd.Execute()
}
