package main

import (
	"context"
	"io"
	"os"
	"time"

	invoice2pdf "github.com/alnah/go-invoice2pdf"
)

// Runner is the part of *invoice2pdf.Pipeline the convert command uses.
type Runner interface {
	Run(ctx context.Context, archivePath, outputDir string) (*invoice2pdf.RunOutcome, error)
	Close() error
}

// Compile-time interface implementation check.
var _ Runner = (*invoice2pdf.Pipeline)(nil)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now       func() time.Time
	Stdout    io.Writer
	Stderr    io.Writer
	NewRunner func(opts ...invoice2pdf.Option) Runner
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		NewRunner: func(opts ...invoice2pdf.Option) Runner {
			return invoice2pdf.New(opts...)
		},
	}
}
