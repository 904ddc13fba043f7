package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
)

// Usage: template [-out contacts_template.xlsx] [-force]
func main() {
	out := flag.String("out", "contacts_template.xlsx", "path of the workbook to create")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	if _, err := os.Stat(*out); err == nil && !*force {
		log.Fatalf("%s already exists (use -force to overwrite)", *out)
	}
	if err := recipients.WriteTemplate(*out); err != nil {
		log.Fatalf("write template: %v", err)
	}
	fmt.Printf("Template written to %s\n", *out)
	fmt.Println("Columns: A contact number, B name (optional), C message, D image path (optional)")
}
