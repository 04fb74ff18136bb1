// Package main is the entry point for cassette, the asset module composer.
package main

func main() {
	Execute()
}
