package main

import "github.com/Digital-Shane/aftercredits/internal/cmd"

func main() {
	cmd.Execute()
}
