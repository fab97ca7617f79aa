package main

import (
	"os"

	"github.com/odyssey-erp/fieldsales/cmd/fieldsalesctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
