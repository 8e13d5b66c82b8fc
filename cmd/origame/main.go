package main

import "github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/cmd/origame/cmd"

func main() {
	cmd.Execute()
}
