package main

import "github.com/maneframe/aws-keychain-util/cmd"

func main() {
	cmd.Execute()
}
