package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/olekukonko/tablewriter"

	"board-lab/domain"
	"board-lab/repositories"
	"board-lab/runtime"
)

// consoleMeasurer approximates rendered text boxes for a host without a
// display: fixed-width glyphs, one line.
type consoleMeasurer struct{}

func (consoleMeasurer) MeasureText(text string) (float64, float64) {
	return float64(7 * len([]rune(text))), 16
}

type approvalRequest struct {
	name  string
	reply chan bool
}

// Console is the manager's terminal: session commands on stdin, plus the
// admission prompts. It doubles as the Approver handed to the websocket
// server; a pending join question takes over the next input line.
type Console struct {
	log        *slog.Logger
	service    *runtime.Service
	repository repositories.IBoardRepository
	in         io.Reader
	out        io.Writer
	approvals  chan approvalRequest
}

func NewConsole(log *slog.Logger, service *runtime.Service, repository repositories.IBoardRepository, in io.Reader, out io.Writer) *Console {
	return &Console{
		log:        log,
		service:    service,
		repository: repository,
		in:         in,
		out:        out,
		approvals:  make(chan approvalRequest),
	}
}

// Decide blocks the joining request until the manager answers at the
// console.
func (c *Console) Decide(candidate string) bool {
	request := approvalRequest{name: candidate, reply: make(chan bool)}
	c.approvals <- request
	return <-request.reply
}

// Run reads stdin until ctx ends or the manager quits. quit is called to
// initiate host shutdown.
func (c *Console) Run(ctx context.Context, quit func()) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Fprintln(c.out, "Commands: users, kick <name>, say <text>, chat, rect, oval, line, shapes, new, save <name>, load <name>, boards, quit")
	for {
		select {
		case <-ctx.Done():
			return
		case request := <-c.approvals:
			c.handleApproval(ctx, request, lines)
		case line, ok := <-lines:
			if !ok {
				return
			}
			if c.dispatch(ctx, strings.TrimSpace(line)) {
				quit()
				return
			}
		}
	}
}

// handleApproval owns the input stream until the join question is answered.
// Anything other than y/yes denies.
func (c *Console) handleApproval(ctx context.Context, request approvalRequest, lines <-chan string) {
	fmt.Fprintf(c.out, "%q wants to join. Approve? [y/n] ", request.name)
	select {
	case <-ctx.Done():
		request.reply <- false
	case answer, ok := <-lines:
		if !ok {
			request.reply <- false
			return
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			request.reply <- true
		default:
			request.reply <- false
		}
	}
}

// dispatch executes one command line. Returns true to quit.
func (c *Console) dispatch(ctx context.Context, line string) bool {
	command, argument, _ := strings.Cut(line, " ")
	argument = strings.TrimSpace(argument)

	switch command {
	case "":
	case "users":
		c.printUsers()
	case "kick":
		if argument == "" {
			fmt.Fprintln(c.out, "usage: kick <name>")
			break
		}
		if err := c.service.Evict(argument); err != nil {
			fmt.Fprintf(c.out, "kick failed: %v\n", err)
		}
	case "say":
		c.service.SendMessage(c.service.Registry().ManagerName(), argument)
	case "chat":
		for _, entry := range c.service.Registry().ChatHistory() {
			fmt.Fprintln(c.out, entry)
		}
	case "rect":
		c.service.AddShape(domain.KindRectangle)
	case "oval":
		c.service.AddShape(domain.KindEllipse)
	case "line":
		c.service.AddShape(domain.KindLine)
	case "shapes":
		c.printShapes()
	case "new":
		c.service.NewBoard()
	case "save":
		if argument == "" {
			fmt.Fprintln(c.out, "usage: save <name>")
			break
		}
		if err := c.service.SaveBoard(ctx, argument); err != nil {
			fmt.Fprintf(c.out, "save failed: %v\n", err)
		}
	case "load":
		if argument == "" {
			fmt.Fprintln(c.out, "usage: load <name>")
			break
		}
		if err := c.service.LoadBoard(ctx, argument); err != nil {
			fmt.Fprintf(c.out, "load failed: %v\n", err)
		}
	case "boards":
		names, err := c.repository.List(ctx)
		if err != nil {
			fmt.Fprintf(c.out, "list failed: %v\n", err)
			break
		}
		for _, name := range names {
			fmt.Fprintln(c.out, name)
		}
	case "quit":
		return true
	default:
		fmt.Fprintf(c.out, "unknown command %q\n", command)
	}
	return false
}

func (c *Console) printUsers() {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Name", "Role"})
	table.SetAutoWrapText(false)
	manager := c.service.Registry().ManagerName()
	for _, name := range c.service.Registry().Names() {
		role := "participant"
		if name == manager {
			role = "manager"
		}
		table.Append([]string{name, role})
	}
	table.Render()
}

func (c *Console) printShapes() {
	for i, shape := range c.service.Board().Snapshot().Shapes {
		switch shape.Kind {
		case domain.KindLine:
			fmt.Fprintf(c.out, "%d: line (%.0f,%.0f)-(%.0f,%.0f)\n", i, shape.Start.X, shape.Start.Y, shape.End.X, shape.End.Y)
		default:
			fmt.Fprintf(c.out, "%d: %s (%.0f,%.0f) %gx%g\n", i, shape.Kind, shape.Bounds.X, shape.Bounds.Y, shape.Bounds.Width, shape.Bounds.Height)
		}
	}
}
