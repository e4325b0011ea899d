package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/mualim/internal/config"
	"github.com/sandevgo/mualim/internal/core"
	"github.com/sandevgo/mualim/internal/service/tutor"
	"github.com/sandevgo/mualim/pkg/log"
)

const (
	defaultSessionID   = "cli-local"
	defaultRequesterID = "cli-local"
	historyFetchLimit  = 16
)

type ReadLine struct {
	cfg      *config.AppConfig
	resolver *tutor.Resolver
	turns    core.TurnsRepository
	rl       *readline.Instance

	subject core.Subject
	grade   core.Grade
}

func NewReadLine(resolver *tutor.Resolver, turns core.TurnsRepository, cfg *config.AppConfig) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:      cfg,
		resolver: resolver,
		turns:    turns,
		rl:       rl,
		subject:  core.SubjectMath,
		grade:    core.Grade12,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("ReadLine chat started. Type 'exit' to quit, ':help' for directives.")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			r.handleDirective(line)
			continue
		}

		r.ask(ctx, line)
	}
}

func (r *ReadLine) ask(ctx context.Context, query string) {
	logger := log.FromCtx(ctx)

	history, err := r.turns.GetTurns(ctx, defaultSessionID, historyFetchLimit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load turns")
	}

	// The resolver streams cumulative text; print only the new suffix
	// so output grows in place.
	printed := 0
	answer := r.resolver.Resolve(ctx, tutor.Request{
		Query:       query,
		Subject:     r.subject,
		Grade:       r.grade,
		History:     history,
		RequesterID: defaultRequesterID,
	}, func(total string) {
		if len(total) > printed {
			fmt.Fprint(r.rl.Stdout(), total[printed:])
			printed = len(total)
		}
	})
	fmt.Fprintln(r.rl.Stdout())

	if err := r.turns.AddTurn(ctx, defaultSessionID, core.Turn{Role: core.RoleUser, Content: query}); err != nil {
		logger.Error().Err(err).Msg("failed to save user turn")
	}
	if err := r.turns.AddTurn(ctx, defaultSessionID, core.Turn{Role: core.RoleAssistant, Content: answer}); err != nil {
		logger.Error().Err(err).Msg("failed to save assistant turn")
	}
}

func (r *ReadLine) handleDirective(line string) {
	out := r.rl.Stdout()
	fields := strings.Fields(line)

	switch fields[0] {
	case ":help":
		fmt.Fprintln(out, "Directives:")
		fmt.Fprintln(out, "  :subject <code>   set the subject (see :subjects)")
		fmt.Fprintln(out, "  :grade <10|11|12> set the grade")
		fmt.Fprintln(out, "  :subjects         list subject codes")

	case ":subjects":
		for _, s := range core.Subjects() {
			fmt.Fprintf(out, "  %-12s %s\n", string(s), s.Label())
		}

	case ":subject":
		if len(fields) < 2 {
			fmt.Fprintf(out, "current subject: %s\n", r.subject.Label())
			return
		}
		for _, s := range core.Subjects() {
			if string(s) == fields[1] {
				r.subject = s
				fmt.Fprintf(out, "subject set to %s\n", s.Label())
				return
			}
		}
		fmt.Fprintf(out, "unknown subject %q, see :subjects\n", fields[1])

	case ":grade":
		if len(fields) < 2 {
			fmt.Fprintf(out, "current grade: %s\n", r.grade.Label())
			return
		}
		switch fields[1] {
		case "10":
			r.grade = core.Grade10
		case "11":
			r.grade = core.Grade11
		case "12":
			r.grade = core.Grade12
		default:
			fmt.Fprintf(out, "unknown grade %q, expected 10, 11 or 12\n", fields[1])
			return
		}
		fmt.Fprintf(out, "grade set to %s\n", r.grade.Label())

	default:
		fmt.Fprintf(out, "unknown directive %q, see :help\n", fields[0])
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
