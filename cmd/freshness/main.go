package main

import "github.com/franckalain/freshness/internal/config"

func main() {
	config.LoadDotEnv()
	Execute()
}
