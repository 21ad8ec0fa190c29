// Package prompt reads answers from the user. Prompters are injected so the
// retry loops can run against scripted input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

var (
	ErrInputClosed       = errors.New("input closed")
	ErrAttemptsExhausted = errors.New("no valid answer within the allowed attempts")
)

type Prompter interface {
	Ask(question string) (string, error)
}

// LinePrompter writes the question to out and reads one line from in.
type LinePrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{scanner: bufio.NewScanner(in), out: out}
}

func (p *LinePrompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// FormPrompter asks through a huh input field.
type FormPrompter struct{}

func (FormPrompter) Ask(question string) (string, error) {
	var answer string
	err := huh.NewInput().Title(question).Value(&answer).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", ErrInputClosed
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// Default picks the huh form on a terminal and plain line reading otherwise.
func Default() Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return FormPrompter{}
	}
	return NewLinePrompter(os.Stdin, os.Stdout)
}

// ThresholdError is returned for input that is not a usable number.
type ThresholdError struct {
	Input string
	Err   error
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %q: %v", e.Input, e.Err)
}

func (e *ThresholdError) Unwrap() error {
	return e.Err
}

// ParseThreshold parses a confidence threshold. Values outside [0, 1] are
// accepted; they simply let everything or nothing through.
func ParseThreshold(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, &ThresholdError{Input: clean, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ThresholdError{Input: clean, Err: errors.New("not a finite number")}
	}
	return v, nil
}

// Retry asks question until accept succeeds. onReject sees every rejected
// answer. maxAttempts <= 0 means no limit.
func Retry[T any](
	p Prompter,
	question string,
	maxAttempts int,
	accept func(answer string) (T, error),
	onReject func(answer string, err error),
) (T, error) {
	var zero T
	for attempt := 1; maxAttempts <= 0 || attempt <= maxAttempts; attempt++ {
		answer, err := p.Ask(question)
		if err != nil {
			return zero, err
		}
		v, err := accept(answer)
		if err == nil {
			return v, nil
		}
		if onReject != nil {
			onReject(answer, err)
		}
	}
	return zero, ErrAttemptsExhausted
}
