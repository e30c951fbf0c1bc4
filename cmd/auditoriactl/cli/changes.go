package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/auditoria360/auditoria360/internal/audit"
	"github.com/auditoria360/auditoria360/internal/parametros"
)

// maxKindScan bounds how far back a kind-filtered tail reads the stream.
const maxKindScan = 10000

// ChangeReader lists the newest change-log entries first.
type ChangeReader interface {
	Recent(ctx context.Context, count int64) ([]audit.Entry, error)
}

// ChangesOptions defines the flags of the changes tail command. Count is the
// number of entries printed; with Kind set it counts matching entries only.
type ChangesOptions struct {
	Count      int64
	Kind       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ChangesTailCommand prints recent entries of the Redis change stream and
// returns the process exit code.
func ChangesTailCommand(ctx context.Context, reader ChangeReader, opts ChangesOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Count <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "changes tail: --count must be positive")
		return 1
	}
	var (
		entries []audit.Entry
		err     error
	)
	if opts.Kind == "" {
		entries, err = reader.Recent(ctx, opts.Count)
	} else {
		kind, kerr := parametros.ParseKind(opts.Kind)
		if kerr != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "changes tail: unknown kind %q (want IRRF or FGTS)\n", opts.Kind)
			return 1
		}
		entries, err = recentOfKind(ctx, reader, string(kind), opts.Count)
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "changes tail: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if entries == nil {
			entries = []audit.Entry{}
		}
		if err := json.NewEncoder(opts.Stdout).Encode(entries); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "changes tail: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderChangesHuman(opts.Stdout, entries)
	return 0
}

// recentOfKind widens the read window until count entries of kind are found,
// the stream is exhausted or maxKindScan entries were scanned.
func recentOfKind(ctx context.Context, reader ChangeReader, kind string, count int64) ([]audit.Entry, error) {
	window := count
	for {
		if window > maxKindScan {
			window = maxKindScan
		}
		entries, err := reader.Recent(ctx, window)
		if err != nil {
			return nil, err
		}
		matched := make([]audit.Entry, 0, count)
		for _, entry := range entries {
			if entry.Kind == kind {
				matched = append(matched, entry)
				if int64(len(matched)) == count {
					return matched, nil
				}
			}
		}
		if int64(len(entries)) < window || window == maxKindScan {
			return matched, nil
		}
		window *= 2
	}
}

func renderChangesHuman(w io.Writer, entries []audit.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "no changes recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "AT\tACTION\tKIND\tRECORD\tVERSION\tACTOR")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.At.UTC().Format(time.RFC3339), e.Action, e.Kind, e.RecordID, e.Version, e.Actor)
	}
	_ = tw.Flush()
}
