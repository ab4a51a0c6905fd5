package main

import (
	"os"

	"github.com/scan-io-git/iacsec/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
