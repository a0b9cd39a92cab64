package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/saadjs/kcal-snap/cmd/snap"
)

func main() {
	snap.Execute()
}
