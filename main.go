package main

import "github.com/abimbolaoige/KFM-Counsel-Chat/cmd"

func main() {
	cmd.Execute()
}
