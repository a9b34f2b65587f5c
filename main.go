package main

import (
	"cfbattle/initalize"
	routerg "cfbattle/router"
)

func main() {
	initalize.Init()
	defer initalize.Eve()
	routerg.RunServer()
}
