package main

import "abcdreport/internal/app"

func main() {
	app.Main()
}
