// Command todosync mirrors agent session todo lists into a beads tracker.
package main

import "github.com/mesh-intelligence/todosync/internal/cli"

func main() {
	cli.Execute()
}
