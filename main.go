package main

import (
	"fmt"
	"os"

	"github.com/BerryBytes/portalctl/cmd/root"
)

func main() {
	deps := root.DefaultDependencies()
	rootCmd := root.NewRootCmd(deps)
	if err := rootCmd.Execute(); err != nil {
		_ = deps.Runtime.Close()
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
