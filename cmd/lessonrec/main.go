package main

import (
	"lessonrec/cmd/handlers"
	"lessonrec/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
