package main

import "l10ntrack/cmd"

func main() {
	cmd.Execute()
}
