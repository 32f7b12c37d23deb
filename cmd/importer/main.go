// Command importer maps CSV and XLSX exports onto the clients and projects
// schemas, validates the mapping and imports the records.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
