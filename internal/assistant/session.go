package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"siem-assistant/internal/common/logger"
)

// Session is the interactive command loop around one Assistant.
type Session struct {
	assistant *Assistant
	in        io.Reader
	out       io.Writer
	logger    logger.Logger
}

func NewSession(assistant *Assistant, in io.Reader, out io.Writer, log logger.Logger) *Session {
	return &Session{
		assistant: assistant,
		in:        in,
		out:       out,
		logger:    log.WithFields(map[string]interface{}{"component": "session"}),
	}
}

// Run reads lines until exit or EOF. Every non-command line is treated as
// a question.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "SIEM Assistant ready. Type 'help' for commands, 'exit' to quit.")

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, rest := splitCommand(line)
		switch command {
		case "exit", "quit":
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		case "help":
			s.printHelp()
		case "clear":
			s.assistant.ClearContext()
			fmt.Fprintln(s.out, "Conversation context cleared.")
		case "history":
			s.printHistory()
		case "health":
			s.printHealth(ctx)
		case "explain":
			s.explain(ctx, rest)
		case "report":
			s.report(ctx, rest)
		default:
			s.ask(ctx, line)
		}
	}
}

func (s *Session) ask(ctx context.Context, question string) {
	answer, err := s.assistant.Ask(ctx, question)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	if !answer.Success {
		fmt.Fprintf(s.out, "%s\n", answer.Error)
		for _, suggestion := range answer.Suggestions {
			fmt.Fprintf(s.out, "  - %s\n", suggestion)
		}
		return
	}

	fmt.Fprintln(s.out, answer.Result.Text)
	if answer.Result.Table != "" {
		fmt.Fprintln(s.out, answer.Result.Table)
	}
	fmt.Fprintf(s.out, "(cost: %s)\n", answer.QueryCost)
}

func (s *Session) explain(ctx context.Context, question string) {
	if question == "" {
		fmt.Fprintln(s.out, "Usage: explain <question>")
		return
	}

	explanation, err := s.assistant.Explain(ctx, question)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "Action:       %s\n", explanation.DetectedIntent.Action)
	fmt.Fprintf(s.out, "Target index: %s\n", explanation.TargetIndex)
	fmt.Fprintf(s.out, "KQL:          %s\n", explanation.KQL)
	fmt.Fprintf(s.out, "Est. cost:    %s\n", explanation.EstimatedCost)
}

func (s *Session) report(ctx context.Context, rest string) {
	if rest == "" {
		fmt.Fprintln(s.out, "Usage: report [json|csv|html] <question>")
		return
	}

	format := "text"
	question := rest
	first, remainder := splitCommand(rest)
	switch first {
	case "json", "csv", "html":
		format = first
		question = remainder
	}

	if question == "" {
		fmt.Fprintln(s.out, "Usage: report [json|csv|html] <question>")
		return
	}

	output, err := s.assistant.Report(ctx, question, format)
	if err != nil {
		fmt.Fprintf(s.out, "Error generating report: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, output)
}

func (s *Session) printHistory() {
	entries := s.assistant.History()
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No conversation history.")
		return
	}

	for i, entry := range entries {
		fmt.Fprintf(s.out, "%d. [%s] %s %v\n", i+1, entry.Timestamp, entry.Action, entry.Entities["event_types"])
	}
}

func (s *Session) printHealth(ctx context.Context) {
	health := s.assistant.HealthCheck(ctx)
	fmt.Fprintf(s.out, "Overall: %s\n", health.Overall)
	for component, status := range health.Components {
		fmt.Fprintf(s.out, "  %s: %s\n", component, status)
	}
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, `Commands:
  <question>              Ask a question in plain English
  explain <question>      Show how the question translates, without running it
  report [fmt] <question> Run the question and export (fmt: json, csv, html)
  history                 Show conversation history
  clear                   Clear conversation context
  health                  Check component health
  help                    Show this help
  exit                    Quit`)
}

func splitCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	command := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return command, ""
	}
	return command, strings.TrimSpace(parts[1])
}
