package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"coursecatalog/internal/middleware"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:54321/auth/v1/.well-known/jwks.json", "JWKS endpoint")
	kid := flag.String("kid", "", "Key ID to export (default: first key)")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(*url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching JWKS: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error fetching JWKS: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(1)
	}

	pemKey, err := middleware.PEMFromJWKS(body, *kid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting JWKS: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(pemKey)
}
