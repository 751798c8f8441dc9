package main

import "github.com/ValentinKolb/dCache/cmd"

func main() {
	cmd.Execute()
}
