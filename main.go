package main

import "realestate-market/cmd"

func main() {
	cmd.Execute()
}
