package main

import (
	"fmt"
	"os"

	"github.com/Myash21/vidtube/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "vidtube:", err)
		os.Exit(1)
	}
}
