/*
Copyright © 2025 docuquery
*/
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/docuquery/rag-be/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}
