/*
Copyright © 2026 Rigtools <dev@rigtools.io>
*/
package main

func main() {
	Execute()
}
