package main

import (
	"os"

	"github.com/dependents/node-app-root/cmd"
)

var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
