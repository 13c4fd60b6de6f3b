package main

import "github.com/jsherman999/skillswap/internal/daemon"

func main() { daemon.Main() }
