package main

import "copbot/internal/app"

func main() {
	app.Main()
}
