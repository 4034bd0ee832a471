package main

import "github.com/subtrack/subtrack/internal/app"

func main() {
	app.Execute()
}
