// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/envinline/envinline/cmd/envinline"

func main() {
	cmd.Execute()
}
