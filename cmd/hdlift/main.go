package main

import (
	"github.com/joho/godotenv"

	"github.com/mvp-joe/hdl-ift/internal/cli"
)

func main() {
	// Provider keys may live in a .env file next to the designs
	_ = godotenv.Load()

	cli.Execute()
}
