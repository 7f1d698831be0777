package main

import "github.com/ValentinKolb/envstore/cmd"

func main() {
	cmd.Execute()
}
