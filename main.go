package main

import (
	"log"

	"alarm-relay/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
