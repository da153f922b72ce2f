package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gookit/color"

	"board-lab/client"
	"board-lab/domain"
)

// Console is the participant's terminal. Commands address shapes and labels
// by their index in the local mirror; the mirrored value itself is the
// reference sent to the host, so an index is only as fresh as the last push.
type Console struct {
	proxy *client.Proxy
	in    io.Reader
}

func NewConsole(proxy *client.Proxy, in io.Reader) *Console {
	return &Console{proxy: proxy, in: in}
}

func (c *Console) Run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("Commands: users, chat, shapes, say <text>, rect, oval, line, move <i> <dx> <dy>, del <i>, label <i> <text>, stroke <x1> <y1> <x2> <y2>, erase <x> <y> <r>, note <x> <y> <text>, quit")
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.proxy.Done():
			return
		case <-c.proxy.Updates():
			// Mirror changed; nothing to do until the user asks.
		case line, ok := <-lines:
			if !ok {
				return
			}
			if c.dispatch(ctx, strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// dispatch executes one command. Returns true when the user quits.
func (c *Console) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	command := fields[0]
	args := fields[1:]

	var err error
	switch command {
	case "users":
		for _, name := range c.proxy.Roster() {
			fmt.Println(name)
		}
	case "chat":
		for _, entry := range c.proxy.Chat() {
			fmt.Println(entry)
		}
	case "shapes":
		c.printShapes()
	case "say":
		_, text, _ := strings.Cut(line, " ")
		err = c.proxy.SendMessage(ctx, text)
	case "rect":
		_, err = c.proxy.AddShape(ctx, domain.KindRectangle)
	case "oval":
		_, err = c.proxy.AddShape(ctx, domain.KindEllipse)
	case "line":
		_, err = c.proxy.AddShape(ctx, domain.KindLine)
	case "move":
		err = c.moveShape(ctx, args)
	case "del":
		err = c.deleteShape(ctx, args)
	case "label":
		err = c.labelShape(ctx, args)
	case "stroke":
		err = c.addStroke(ctx, args)
	case "erase":
		err = c.erase(ctx, args)
	case "note":
		err = c.addNote(ctx, args)
	case "quit":
		if err := c.proxy.Quit(ctx); err != nil {
			color.Red.Println("goodbye failed:", err)
		}
		return true
	default:
		color.Red.Println("unknown command:", command)
	}

	if err != nil {
		color.Red.Println(err)
	}
	return false
}

func (c *Console) moveShape(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: move <i> <dx> <dy>")
	}
	shape, err := c.shapeAt(args[0])
	if err != nil {
		return err
	}
	dx, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return err
	}
	dy, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return err
	}
	return c.proxy.MoveShape(ctx, shape, dx, dy)
}

func (c *Console) deleteShape(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: del <i>")
	}
	shape, err := c.shapeAt(args[0])
	if err != nil {
		return err
	}
	return c.proxy.DeleteShape(ctx, shape)
}

func (c *Console) labelShape(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: label <i> <text>")
	}
	shape, err := c.shapeAt(args[0])
	if err != nil {
		return err
	}
	return c.proxy.SetShapeLabel(ctx, shape, strings.Join(args[1:], " "))
}

func (c *Console) addStroke(ctx context.Context, args []string) error {
	coords, err := floats(args, 4, "usage: stroke <x1> <y1> <x2> <y2>")
	if err != nil {
		return err
	}
	return c.proxy.AddStroke(ctx, domain.Stroke{
		Start: domain.Point{X: coords[0], Y: coords[1]},
		End:   domain.Point{X: coords[2], Y: coords[3]},
		Color: domain.Black,
		Width: 1,
	})
}

func (c *Console) erase(ctx context.Context, args []string) error {
	coords, err := floats(args, 3, "usage: erase <x> <y> <r>")
	if err != nil {
		return err
	}
	return c.proxy.EraseStrokes(ctx, domain.Circle{
		Center: domain.Point{X: coords[0], Y: coords[1]},
		Radius: coords[2],
	})
}

func (c *Console) addNote(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: note <x> <y> <text>")
	}
	coords, err := floats(args[:2], 2, "usage: note <x> <y> <text>")
	if err != nil {
		return err
	}
	label := domain.NewLabel(strings.Join(args[2:], " "), coords[0], coords[1], domain.Black)
	return c.proxy.AddLabel(ctx, label)
}

func (c *Console) shapeAt(arg string) (domain.Shape, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return domain.Shape{}, fmt.Errorf("bad index %q", arg)
	}
	shapes := c.proxy.Shapes()
	if index < 0 || index >= len(shapes) {
		return domain.Shape{}, fmt.Errorf("no shape %d", index)
	}
	return shapes[index], nil
}

func (c *Console) printShapes() {
	for i, shape := range c.proxy.Shapes() {
		switch shape.Kind {
		case domain.KindLine:
			fmt.Printf("%d: line (%.0f,%.0f)-(%.0f,%.0f)\n", i, shape.Start.X, shape.Start.Y, shape.End.X, shape.End.Y)
		default:
			fmt.Printf("%d: %s (%.0f,%.0f) %gx%g\n", i, shape.Kind, shape.Bounds.X, shape.Bounds.Y, shape.Bounds.Width, shape.Bounds.Height)
		}
	}
}

func floats(args []string, n int, usage string) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s", usage)
	}
	out := make([]float64, n)
	for i, arg := range args {
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", arg)
		}
		out[i] = value
	}
	return out, nil
}
