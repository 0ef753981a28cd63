package main

import "childhealth/cmd/client/cmd"

func main() {
	cmd.Execute()
}
