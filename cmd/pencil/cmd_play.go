package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/felixgeelhaar/pencil/internal/config"
	"github.com/felixgeelhaar/pencil/internal/player"
	"github.com/felixgeelhaar/pencil/internal/widget"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const playHelp = `Commands:
  edit          replace the code; finish with a line holding a single "."
  load <file>   replace the code with the contents of a file
  show          print the exercise, the code and its output
  run           run the code; a clean run or a program error is graded
  submit        submit the last run again
  reset         restore the starting code
  status        show progress
  quit          leave`

var (
	correctColor = color.New(color.FgGreen, color.Bold)
	wrongColor   = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

func newPlayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play <exercise|pack>",
		Short: "Play an exercise or every exercise of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			exercises, err := a.resolve(args[0])
			if err != nil {
				return err
			}

			r := &repl{out: cmd.OutOrStdout()}
			cfg := a.playerConfig()
			cfg.Exercises = exercises
			cfg.Confirmer = widget.ConfirmFunc(r.confirm)

			p, err := player.New(cfg)
			if err != nil {
				return err
			}
			defer p.Close()
			r.player = p

			return r.loop(ctx)
		},
	}
}

// repl drives a player from the terminal
type repl struct {
	out    io.Writer
	rl     *readline.Instance
	player *player.Player
}

func (r *repl) open() error {
	history := ""
	if dir, err := config.EnsurePencilDir(); err == nil {
		history = filepath.Join(dir, "history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "pencil> ",
		HistoryFile:       history,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	r.rl = rl
	return nil
}

func (r *repl) loop(ctx context.Context) error {
	if err := r.open(); err != nil {
		return err
	}
	defer func() { _ = r.rl.Close() }()

	fmt.Fprintln(r.out, playHelp)
	fmt.Fprintln(r.out)
	r.show()

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "":
		case "edit":
			r.edit()
		case "load":
			r.load(strings.TrimSpace(arg))
		case "show":
			r.show()
		case "run":
			r.run(ctx)
		case "submit":
			r.submit()
		case "reset":
			r.reset(ctx)
		case "status":
			r.status()
		case "help", "?":
			fmt.Fprintln(r.out, playHelp)
		case "quit", "exit", "q":
			return nil
		default:
			errorColor.Fprintf(r.out, "unknown command %q, type help\n", cmd)
		}

		if r.player.Finished() {
			correctColor.Fprintln(r.out, "All exercises complete.")
			return nil
		}
	}
}

func (r *repl) edit() {
	fmt.Fprintln(r.out, `Enter code, end with "." on its own line:`)
	r.rl.SetPrompt("... ")
	code, err := readBlock(r.rl.Readline)
	r.rl.SetPrompt("pencil> ")
	if err != nil {
		errorColor.Fprintf(r.out, "edit cancelled: %v\n", err)
		return
	}
	r.apply(code)
}

func (r *repl) load(path string) {
	if path == "" {
		errorColor.Fprintln(r.out, "usage: load <file>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		errorColor.Fprintf(r.out, "load: %v\n", err)
		return
	}
	r.apply(string(data))
}

func (r *repl) apply(code string) {
	if err := r.player.Edit(code); err != nil {
		errorColor.Fprintf(r.out, "edit: %v\n", err)
		return
	}
	dimColor.Fprintln(r.out, "code updated")
}

func (r *repl) show() {
	st := r.player.Status()
	if st.Finished {
		return
	}
	fmt.Fprintf(r.out, "[%d/%d] %s\n", st.Position, st.Total, st.Title)
	if st.Prompt != "" {
		fmt.Fprintln(r.out, strings.TrimSpace(st.Prompt))
	}
	if st.Mode == widget.ModeReadOnly {
		dimColor.Fprintln(r.out, "(already answered, read-only)")
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, numbered(st.Code))
	if len(st.Output) > 0 {
		dimColor.Fprintln(r.out, "output:")
		for _, l := range st.Output {
			fmt.Fprintln(r.out, "  "+l)
		}
	}
}

func (r *repl) run(ctx context.Context) {
	before := r.player.Status().ExerciseID

	report, err := r.player.Run(ctx)
	if report == nil {
		errorColor.Fprintf(r.out, "run: %v\n", err)
		return
	}
	if res := report.Result; res != nil {
		if res.Stdout != "" {
			fmt.Fprint(r.out, ensureNewline(res.Stdout))
		}
		if res.Failed() {
			errorColor.Fprintln(r.out, res.ErrorMessage())
		}
	}
	if err != nil {
		errorColor.Fprintf(r.out, "run: %v\n", err)
	}
	r.report(report.Attempt)

	if st := r.player.Status(); !st.Finished && st.ExerciseID != before {
		fmt.Fprintln(r.out)
		r.show()
	}
}

func (r *repl) submit() {
	before := r.player.Status().ExerciseID
	attempt, err := r.player.Submit()
	if err != nil {
		errorColor.Fprintf(r.out, "submit: %v\n", err)
		return
	}
	if attempt == nil {
		dimColor.Fprintln(r.out, "already submitted; run the code again first")
		return
	}
	r.report(attempt)
	if st := r.player.Status(); !st.Finished && st.ExerciseID != before {
		fmt.Fprintln(r.out)
		r.show()
	}
}

func (r *repl) report(a *player.Attempt) {
	if a == nil {
		return
	}
	fb := a.Outcome.Feedback
	if a.Outcome.Correct {
		if fb == "" {
			fb = "Correct!"
		}
		correctColor.Fprintln(r.out, fb)
		return
	}
	if fb == "" {
		fb = "Not quite."
	}
	wrongColor.Fprintln(r.out, fb)
}

func (r *repl) reset(ctx context.Context) {
	if err := r.player.Reset(ctx); err != nil {
		errorColor.Fprintf(r.out, "reset: %v\n", err)
		return
	}
	r.show()
}

func (r *repl) status() {
	st := r.player.Status()
	fmt.Fprintf(r.out, "exercise %d of %d, %d completed, %d attempts\n",
		st.Position, st.Total, st.Completed, st.Attempts)
	if st.Last != nil {
		fmt.Fprint(r.out, "last: ")
		r.report(&player.Attempt{Outcome: *st.Last})
	}
}

// confirm asks a yes/no question. readline owns the terminal while it is
// open, so it is closed for the prompt and reopened afterwards.
func (r *repl) confirm(_ context.Context, question string) (bool, error) {
	if r.rl != nil {
		_ = r.rl.Close()
		defer func() {
			if err := r.open(); err != nil {
				errorColor.Fprintf(r.out, "%v\n", err)
			}
		}()
	}

	prompt := promptui.Prompt{Label: question, IsConfirm: true}
	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// readBlock reads lines from next until a line holding a single "." and
// returns them joined with newlines.
func readBlock(next func() (string, error)) (string, error) {
	var lines []string
	for {
		line, err := next()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func numbered(code string) string {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%3d | %s\n", i+1, l)
	}
	return strings.TrimRight(b.String(), "\n")
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
