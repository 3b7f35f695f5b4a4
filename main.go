package main

import (
	"github.com/iyedlimem/Flenci-server-side/cmd"
)

func main() {
	cmd.Execute()
}
