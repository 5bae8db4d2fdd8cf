package main

import "github.com/Nieto-/AnamorphosisMadeEasy/cmd/anamorph/cmd"

func main() {
	cmd.Execute()
}
