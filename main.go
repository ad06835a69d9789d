package main

import (
	"os"

	"github.com/confetti-go/confetti/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
