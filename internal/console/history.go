package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const historyLockWait = 2 * time.Second

// History is an ordered list of unique entries, most recent last.
type History struct {
	entries []string
	limit   int
}

func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Add appends line, dropping any earlier identical entry and the oldest
// entries beyond the limit. Blank lines are ignored.
func (h *History) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	for i, e := range h.entries {
		if e == line {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, line)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}

// Load adds one entry per line of r.
func (h *History) Load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		h.Add(strings.TrimRight(sc.Text(), "\r"))
	}
	return sc.Err()
}

func (h *History) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range h.entries {
		if _, err := bw.WriteString(e); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadHistoryFile reads path into h. A missing file is reported as an error
// matching os.ErrNotExist.
func LoadHistoryFile(h *History, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := h.Load(f); err != nil {
		return fmt.Errorf("console: read history %s: %w", path, err)
	}
	return nil
}

// SaveHistoryFile replaces path with h under an advisory lock on
// path+".lock", so concurrent clients never interleave their writes.
func SaveHistoryFile(h *History, path string) error {
	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), historyLockWait)
	defer cancel()
	ok, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("console: lock history %s: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("console: lock history %s: held by another process", path)
	}
	defer func() { _ = lock.Unlock() }()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("console: write history %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	if err := h.Save(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("console: write history %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("console: write history %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("console: write history %s: %w", path, err)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
