package main

import (
	"github.com/makerhub/makerhub/cmd/makerhub/cmd"
)

func main() {
	cmd.Execute()
}
