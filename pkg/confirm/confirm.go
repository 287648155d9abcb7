// Package confirm resolves yes/no questions asked before any mutating action,
// either automatically from flags or by prompting the operator.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	// ErrQuit is returned when the operator asks to stop the whole run.
	ErrQuit = errors.New("confirm: quit requested")

	// ErrNoInput is returned when the prompt input closes before an answer.
	ErrNoInput = errors.New("confirm: input closed")
)

// ConfigurationError reports mutually exclusive options set together.
type ConfigurationError struct {
	Options []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("at most one of %s is allowed", strings.Join(e.Options, ", "))
}

// Mode is how answers are produced.
type Mode int

const (
	ModePrompt Mode = iota
	ModeYes
	ModeNo
	ModeDefault
)

func (m Mode) String() string {
	switch m {
	case ModePrompt:
		return "prompt"
	case ModeYes:
		return "yes"
	case ModeNo:
		return "no"
	case ModeDefault:
		return "default"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Options are the answer-forcing flags. At most one may be set.
type Options struct {
	Yes     bool
	No      bool
	Default bool
}

// Mode validates the options and returns the resulting mode.
func (o Options) Mode() (Mode, error) {
	var set []string
	mode := ModePrompt
	if o.Yes {
		set = append(set, "--yes")
		mode = ModeYes
	}
	if o.No {
		set = append(set, "--no")
		mode = ModeNo
	}
	if o.Default {
		set = append(set, "--default")
		mode = ModeDefault
	}
	if len(set) > 1 {
		return ModePrompt, &ConfigurationError{Options: set}
	}
	return mode, nil
}

// Policy answers questions. Decide is safe for concurrent use; prompts are serialized.
type Policy struct {
	mode Mode
	in   *bufio.Reader
	out  io.Writer
	mu   sync.Mutex
}

// New builds a Policy. in is only read in prompt mode and may be nil otherwise.
func New(opts Options, in io.Reader, out io.Writer) (*Policy, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}

	p := &Policy{mode: mode, out: out}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	return p, nil
}

// Mode returns the policy mode.
func (p *Policy) Mode() Mode {
	return p.mode
}

// Decide answers the question "<message>?".
//
// In prompt mode a blank answer picks def, y/yes and n/no answer directly,
// q/quit returns ErrQuit, and anything else asks again.
func (p *Policy) Decide(message string, def bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.mode {
	case ModeDefault:
		fmt.Fprintf(p.out, "%s? [auto] %s\n", message, yn(def))
		return def, nil
	case ModeYes:
		fmt.Fprintf(p.out, "%s? [auto] YES\n", message)
		return true, nil
	case ModeNo:
		fmt.Fprintf(p.out, "%s? [auto] NO\n", message)
		return false, nil
	}

	if p.in == nil {
		return false, ErrNoInput
	}

	question := message + "? [N/y] "
	if def {
		question = message + "? [Y/n] "
	}

	for {
		fmt.Fprint(p.out, question)

		line, err := p.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				fmt.Fprintln(p.out)
				return false, ErrNoInput
			}
			return false, fmt.Errorf("read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "q", "quit":
			fmt.Fprintln(p.out, "Exit")
			return false, ErrQuit
		}

		fmt.Fprintln(p.out, "Please answer YES or NO.")
	}
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
