package main

import "movie-recommender/internal/cli"

func main() {
	cli.Execute()
}
