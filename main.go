package main

import "github.com/soocke/debuff-tracker-go/cmd"

func main() {
	cmd.Execute(NewLogger)
}
