package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
)

// gentoken prints a random bearer token for API_TOKEN and, with -webhook,
// a secret for WEBHOOK_SECRET
func main() {
	size := flag.Int("bytes", 32, "random bytes per token")
	withWebhook := flag.Bool("webhook", false, "also print a WEBHOOK_SECRET")
	flag.Parse()

	token, err := randomToken(*size)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	fmt.Printf("API_TOKEN=%s\n", token)

	if *withWebhook {
		secret, err := randomToken(*size)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		fmt.Printf("WEBHOOK_SECRET=%s\n", secret)
	}
}

func randomToken(size int) (string, error) {
	if size < 16 {
		return "", fmt.Errorf("token needs at least 16 bytes, got %d", size)
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
