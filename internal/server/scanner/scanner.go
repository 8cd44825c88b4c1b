// Package scanner talks to the malware-scanning oracle.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/SakshiM22/secure-vault/internal/common"
)

// ErrScanFailed means the oracle could not produce a verdict. It is never
// treated as "safe".
var ErrScanFailed = errors.New("malware scan failed")

type Verdict struct {
	Safe       bool
	EngineHits int
	Signatures []string
}

type Scanner interface {
	Scan(ctx context.Context, r io.Reader) (Verdict, error)
}

// Func adapts a function to Scanner.
type Func func(ctx context.Context, r io.Reader) (Verdict, error)

func (f Func) Scan(ctx context.Context, r io.Reader) (Verdict, error) { return f(ctx, r) }

// Multi runs every scanner over the same bytes (via a seekable source) and
// counts the engines that flagged it. Any engine error fails the scan, and
// so does an empty set.
type Multi []Scanner

func (m Multi) Scan(ctx context.Context, r io.Reader) (Verdict, error) {
	if len(m) == 0 {
		return Verdict{}, fmt.Errorf("%w: no scan engines configured", ErrScanFailed)
	}
	seeker, ok := r.(io.ReadSeeker)
	if !ok && len(m) > 1 {
		return Verdict{}, fmt.Errorf("%w: multi-engine scan needs a seekable source", ErrScanFailed)
	}

	out := Verdict{Safe: true}
	for i, s := range m {
		if i > 0 {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return Verdict{}, fmt.Errorf("%w: rewind: %v", ErrScanFailed, err)
			}
		}
		v, err := s.Scan(ctx, r)
		if err != nil {
			return Verdict{}, err
		}
		if !v.Safe {
			out.Safe = false
			out.EngineHits++
			out.Signatures = append(out.Signatures, v.Signatures...)
		}
	}
	return out, nil
}

// classify maps context expiry to common.ErrTimeout and anything else to
// ErrScanFailed.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: scan: %v", common.ErrTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: scan: %v", common.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrScanFailed, err)
}
