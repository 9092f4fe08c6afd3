//go:build ignore

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/webhook"
)

// sign_payload.go prints the X-Ponto-Signature header for a payload read
// from stdin, for testing webhook receivers by hand.
//
// Usage:
//   echo -n '{"employeeId":"E001","timestamp":"2024-03-01 14:04:09"}' | go run scripts/sign_payload.go <secret>

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/sign_payload.go <secret> < payload.json")
		os.Exit(1)
	}

	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read payload:", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %s\n", webhook.HeaderSignature, webhook.Sign(os.Args[1], time.Now(), payload))
}
