package main

import (
	"github.com/cacertsync/cacertsync/internal/cli"
)

func main() {
	cli.Execute()
}
