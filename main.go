// ./main.go
package main

import (
	"github.com/xkilldash9x/pagekit/cmd"
)

// main is the entry point for the pagekit CLI.
func main() {
	cmd.Execute()
}
