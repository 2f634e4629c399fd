package gesture

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LabelTable maps classifier output indices to labels.
type LabelTable []Label

// DefaultLabels returns a fresh copy of the fallback table [rock, scissors, paper].
func DefaultLabels() LabelTable {
	return LabelTable{Rock, Scissors, Paper}
}

// At returns the label for a class index, or Unknown when the index is out of range.
func (t LabelTable) At(index int) Label {
	if index < 0 || index >= len(t) {
		return Unknown
	}
	return t[index]
}

// Strings returns the canonical names of the table entries.
func (t LabelTable) Strings() []string {
	out := make([]string, len(t))
	for i, l := range t {
		out[i] = string(l)
	}
	return out
}

// LabelFileError reports a missing or malformed label file.
type LabelFileError struct {
	Path string
	Line int
	Err  error
}

func (e *LabelFileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("label file %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("label file %s: %v", e.Path, e.Err)
}

func (e *LabelFileError) Unwrap() error {
	return e.Err
}

// ReadLabels reads a newline-delimited label file. Each line may carry a leading
// whitespace-delimited index token ("0 rock", "0\trock"); it is stripped. Blank
// lines are skipped. A class name outside the gesture set keeps its position as
// Unknown so later indexes stay aligned. A file where no line names a gesture,
// or with a bare index, is malformed.
func ReadLabels(path string) (LabelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LabelFileError{Path: path, Err: err}
	}
	defer f.Close()

	var table LabelTable
	recognized := 0
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if len(fields) == 1 && isIndex(fields[0]) {
			return nil, &LabelFileError{Path: path, Line: lineNum, Err: fmt.Errorf("index %s without a label", fields[0])}
		}
		if len(fields) > 1 {
			fields = fields[1:]
		}

		label, ok := ParseLabel(strings.Join(fields, " "))
		if ok {
			recognized++
		}
		table = append(table, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, &LabelFileError{Path: path, Err: err}
	}

	if recognized == 0 {
		return nil, &LabelFileError{Path: path, Err: fmt.Errorf("no gesture labels")}
	}

	return table, nil
}

func isIndex(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// LoadLabels reads the label file and substitutes DefaultLabels wholesale on any
// error. The error is returned alongside the default table so callers can log it.
func LoadLabels(path string) (LabelTable, error) {
	table, err := ReadLabels(path)
	if err != nil {
		return DefaultLabels(), err
	}
	return table, nil
}
