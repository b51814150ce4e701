package main

import "github.com/sajjad-MoBe/usbrefresh/panel/src/cmd"

func main() {
	cmd.ExecuteServer()
}
