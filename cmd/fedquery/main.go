// Package main is the entry point for the fedquery server and its
// administrative commands.
package main

func main() {
	Execute()
}
