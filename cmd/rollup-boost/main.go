package main

import (
	"github.com/cody-wang-cb/rollup-boost/cmd/rollup-boost/cmd"
)

func main() {
	cmd.Execute()
}
