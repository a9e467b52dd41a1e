// genhash prints bcrypt hashes for seeding recruiter accounts:
//
//	go run ./scripts/genhash.go -cost 12 alice:secret bob:other
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: genhash [-cost n] username:password ...")
		os.Exit(2)
	}

	for _, arg := range flag.Args() {
		user, pass, ok := strings.Cut(arg, ":")
		if !ok || pass == "" {
			fmt.Fprintf(os.Stderr, "skipping %q: expected username:password\n", arg)
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), *cost)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}
		fmt.Printf("UPDATE person SET password = '%s' WHERE username = '%s';\n", hash, user)
	}
}
