package rapport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/rapport/pkg/domain"
)

// Runner drives playthroughs over line-oriented IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms content before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner on the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

func (r *Runner) check() (*bufio.Reader, error) {
	if r.Input == nil {
		return nil, fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return nil, fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	return bufio.NewReader(r.Input), nil
}

func (r *Runner) print(s string) {
	if r.Renderer != nil {
		if rendered, err := r.Renderer(s); err == nil {
			s = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(s))
}

// readLine returns the next trimmed line. ok is false at EOF.
func (r *Runner) readLine(lr *bufio.Reader) (string, bool, error) {
	if !r.Headless {
		fmt.Fprint(r.Output, "> ")
	}
	text, err := lr.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if t := strings.TrimSpace(text); t != "" {
				return t, true, nil
			}
			return "", false, nil
		}
		return "", false, fmt.Errorf("input error: %w", err)
	}
	return strings.TrimSpace(text), true, nil
}

// Play runs a static playthrough until the final state, EOF or "quit".
// Options are chosen by number or by event id; "replay" restarts.
func (r *Runner) Play(ctx context.Context, m *Machine) error {
	lr, err := r.check()
	if err != nil {
		return err
	}
	if !r.Headless {
		fmt.Fprintln(r.Output, "--- Rapport (play) ---")
	}

	shown := 0
	for {
		turns := m.Transcript()
		for _, t := range turns[shown:] {
			if t.Speaker == domain.SpeakerActor {
				r.print(t.Content)
			}
		}
		shown = len(turns)

		if m.Done() {
			r.printScores(m.Context())
			return nil
		}

		opts := m.Options()
		for i, opt := range opts {
			fmt.Fprintf(r.Output, "  %d) %s\n", i+1, opt.Label)
		}

		line, ok, err := r.readLine(lr)
		if err != nil {
			return err
		}
		if !ok || line == "quit" || line == "exit" {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}

		event := line
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(opts) {
			event = opts[n-1].EventID
		}
		fired, err := m.Fire(ctx, event)
		if err != nil {
			return err
		}
		if event == domain.EventReplay {
			shown = 0
			continue
		}
		if !fired {
			fmt.Fprintf(r.Output, "Unknown choice %q.\n", line)
		}
	}
}

// Chat runs a generated conversation. Free text is submitted as is;
// "/<id>" picks a suggestion, "/retry" retries a failed call and "/end" or EOF
// ends the dialogue.
func (r *Runner) Chat(ctx context.Context, o *Orchestrator) error {
	lr, err := r.check()
	if err != nil {
		return err
	}
	if !r.Headless {
		fmt.Fprintln(r.Output, "--- Rapport (chat) ---")
	}

	shown := 0
	report := func(opErr error) error {
		turns := o.Transcript()
		for _, t := range turns[shown:] {
			switch t.Speaker {
			case domain.SpeakerActor:
				r.print(t.Content)
			case domain.SpeakerUser:
				if t.Analysis != nil && t.Analysis.Feedback != "" {
					fmt.Fprintf(r.Output, "  (feedback) %s\n", t.Analysis.Feedback)
				}
			}
		}
		shown = len(turns)

		switch {
		case opErr == nil:
		case errors.Is(opErr, domain.ErrGenerationFailed), errors.Is(opErr, domain.ErrRateLimited):
			fmt.Fprintf(r.Output, "Generation failed: %v (type /retry)\n", opErr)
		case errors.Is(opErr, domain.ErrInvalidOperation):
			fmt.Fprintf(r.Output, "%v\n", opErr)
		default:
			return opErr
		}

		if o.Activity() == domain.ActivityWaitingForUser {
			for _, s := range o.Suggestions() {
				fmt.Fprintf(r.Output, "  /%s %s\n", s.ID, s.Content)
			}
		}
		return nil
	}

	if err := report(o.Start(ctx)); err != nil {
		return err
	}

	for o.Activity() != domain.ActivityCompleted {
		line, ok, err := r.readLine(lr)
		if err != nil {
			return err
		}

		var opErr error
		switch {
		case !ok || line == "/end" || line == "/quit":
			_, opErr = o.EndDialogue(ctx)
		case line == "/retry":
			opErr = o.Retry(ctx)
		case strings.HasPrefix(line, "/"):
			opErr = o.SelectSuggestedResponse(ctx, strings.TrimPrefix(line, "/"))
		default:
			opErr = o.SubmitUserInput(ctx, line)
		}
		if err := report(opErr); err != nil {
			return err
		}
	}

	r.printScores(o.Totals())
	return nil
}

func (r *Runner) printScores(s domain.Scores) {
	if r.Headless {
		return
	}
	fmt.Fprintln(r.Output, "--- Scores ---")
	for _, c := range domain.Categories {
		fmt.Fprintf(r.Output, "  %-16s %d\n", c, s.Get(c))
	}
}
