package main

import "tutorbot/internal/app"

func main() {
	app.Main()
}
