// Package main provides the easel command-line interface.
package main

func main() {
	Execute()
}
