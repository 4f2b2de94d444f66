// Package main provides the balbo command line.
package main

import "github.com/maauso/balbo/internal/cli"

func main() {
	cli.Execute()
}
