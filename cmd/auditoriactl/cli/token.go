package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/auditoria360/auditoria360/internal/authn"
)

// TokenOptions defines the flags of the token command.
type TokenOptions struct {
	Secret  string
	Subject string
	Scopes  []string
	TTL     time.Duration
	Stdout  io.Writer
	Stderr  io.Writer
}

// TokenCommand signs an admin bearer token and prints it.
func TokenCommand(opts TokenOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if err := opts.validate(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "token: %v\n", err)
		return 1
	}
	token, err := authn.Issue(opts.Secret, opts.Subject, opts.Scopes, opts.TTL)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "token: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(opts.Stdout, token)
	return 0
}

func (o TokenOptions) validate() error {
	switch {
	case o.Secret == "":
		return errors.New("ADMIN_JWT_SECRET or --secret is required")
	case strings.TrimSpace(o.Subject) == "":
		return errors.New("--subject is required")
	case o.TTL <= 0:
		return errors.New("--ttl must be positive")
	}
	return nil
}
