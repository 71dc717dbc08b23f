package main

import (
	"fmt"

	"github.com/netdata/registry/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Exiting with error: %v\n", r)
		}
	}()
	cmd.Execute()
}
