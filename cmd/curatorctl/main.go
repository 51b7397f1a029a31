package main

import (
	"github.com/totegamma/curatorgate/cmd/curatorctl/cmd"
)

func main() {
	cmd.Execute()
}
