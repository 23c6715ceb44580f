package main

import "github.com/oshokin/dmg-installer/cmd/dmg-installer/cmd"

func main() {
	cmd.Execute()
}
