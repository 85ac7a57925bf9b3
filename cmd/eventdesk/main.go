package main

import (
	"github.com/awnumar/memguard"

	"github.com/jmcleod/eventdesk/cmd/eventdesk/cmd"
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	cmd.Execute()
}
