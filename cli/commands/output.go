package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/tailscale/hujson"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// printJSON writes v as indented JSON.
func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printLine writes v as one compact JSON line.
func (a *App) printLine(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
}

// readInput returns args joined by spaces, or stdin when args is empty or
// the single argument "-".
func (a *App) readInput(args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if f, ok := a.stdin.(*os.File); ok && len(args) == 0 {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return "", usageErrorf("no prompt: pass it as an argument or pipe it on stdin")
		}
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", usageErrorf("empty prompt")
	}
	return text, nil
}

// readJSONC reads a JSON file that may carry comments and trailing commas.
func readJSONC(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return usageErrorf("read %s: %v", path, err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return usageErrorf("parse %s: %v", path, err)
	}
	if err := json.Unmarshal(std, v); err != nil {
		return usageErrorf("decode %s: %v", path, err)
	}
	return nil
}

// readLines calls fn for every non-blank line of path, with its 1-based
// line number.
func readLines(path string, fn func(n int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return usageErrorf("open %s: %v", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 32<<20)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return usageErrorf("read %s: %v", path, err)
	}
	return nil
}
