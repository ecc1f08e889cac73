package main

import "devdigest/internal/app"

func main() {
	app.Main()
}
