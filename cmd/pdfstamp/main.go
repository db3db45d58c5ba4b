package main

import "github.com/digitorus/pdfstamp/cli"

func main() {
	cli.Execute()
}
