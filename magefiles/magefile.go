//go:build mage

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "bin/monotax"

// Build tidies deps, then compiles to ./bin/monotax. go-sqlite3 needs cgo.
func Build() error {
	mg.Deps(Tidy)
	fmt.Println(">> Building monotax...")
	return sh.RunWith(map[string]string{"CGO_ENABLED": "1"}, "go", "build", "-o", binary, "./cmd/monotax")
}

// Serve builds then runs the HTTP API.
func Serve() error {
	mg.Deps(Build)
	port := os.Getenv("MONOTAX_PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf(">> Starting API on :%s ...\n", port)
	return sh.RunV(binary, "serve", "-port", port)
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Test runs all unit tests.
func Test() error {
	fmt.Println(">> Running tests...")
	return sh.RunV("go", "test", "./...")
}

// Cover runs the tests with a coverage profile in ./bin/cover.out.
func Cover() error {
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "test", "-coverprofile", "bin/cover.out", "./...")
}

// Lint runs golangci-lint if available.
func Lint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		fmt.Println(">> golangci-lint not found; skipping.")
		return nil
	}
	return sh.Run("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println(">> Cleaning...")
	return os.RemoveAll("bin")
}

// Install builds and installs the binary to $GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.Run("go", "install", "./cmd/monotax")
}

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("error loading .env file", "err", err)
	}
}
