package main

import (
	"github.com/syncflux-collector/cmd/agent"
)

func main() {
	agent.Execute()
}
