package main

import "github.com/qrave1/eyeson-go/cmd"

func main() {
	cmd.Execute()
}
