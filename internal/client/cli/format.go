package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/dustin/go-humanize"
)

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func sizeOf(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func stamp(t time.Time) string {
	return t.Local().Format(time.DateTime)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatEvent(e *api.Event) string {
	return fmt.Sprintf("%s  %-16s %-8s %s %s", stamp(e.CreatedAt), e.Action, e.Outcome, orDash(e.Email), orDash(e.Origin))
}
