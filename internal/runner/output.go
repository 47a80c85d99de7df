package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/logrusorgru/aurora"
	"github.com/projectdiscovery/liveprobe/pkg/liveness"
)

// OutputWriter writes reachable outcomes to stdout and an optional file
type OutputWriter struct {
	json    bool
	au      aurora.Aurora
	mu      sync.Mutex
	writers []io.Writer
	file    *os.File
}

// NewOutputWriter creates a writer printing to stdout and, when path is set, to path
func NewOutputWriter(jsonLines, noColor bool, path string) (*OutputWriter, error) {
	w := &OutputWriter{
		json:    jsonLines,
		au:      aurora.NewAurora(!noColor),
		writers: []io.Writer{os.Stdout},
	}
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create output file: %w", err)
		}
		w.file = file
		w.writers = append(w.writers, file)
	}
	return w, nil
}

// Write one outcome. Files never receive color codes.
func (w *OutputWriter) Write(outcome liveness.Outcome) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, writer := range w.writers {
		colored := i == 0
		line, err := w.format(outcome, colored)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}
	return nil
}

func (w *OutputWriter) format(outcome liveness.Outcome, colored bool) (string, error) {
	if w.json {
		data, err := json.Marshal(outcome)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var b strings.Builder
	b.WriteString(outcome.Addr.String())
	if outcome.Target != "" && outcome.Target != outcome.Addr.String() {
		fmt.Fprintf(&b, " [%s]", outcome.Target)
	}
	if outcome.Name != "" {
		fmt.Fprintf(&b, " [%s]", outcome.Name)
	}
	method := string(outcome.Method)
	if colored {
		method = w.au.Green(method).String()
		if outcome.Method == liveness.MethodFallback {
			method = w.au.Yellow(string(outcome.Method)).String()
		}
	}
	fmt.Fprintf(&b, " (%s)", method)
	return b.String(), nil
}

// Close the output file, if any
func (w *OutputWriter) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
