// hashpw prints the argon2id hash of a password for use as
// BINDEX_ADMIN_PASSWORD_HASH.
//
// Usage (run from the repo root):
//
//	go run scripts/hashpw/main.go 'your-password'
//
// or pipe the password on stdin:
//
//	echo -n 'your-password' | go run scripts/hashpw/main.go
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cardmeta/bindex/internal/auth"
)

func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read stdin: %v\n", err)
			os.Exit(1)
		}
		password = strings.TrimRight(string(data), "\r\n")
	}

	if password == "" {
		fmt.Fprintln(os.Stderr, "error: empty password")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
