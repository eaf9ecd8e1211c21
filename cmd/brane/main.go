// Package main is the entry point for brane.
package main

func main() {
	Execute()
}
