// Package console is the interactive text interface: a line-reading loop in
// front of the interaction engine. It owns session setup and teardown; the
// engine owns everything the conversation means.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"quill/internal/engine"
	"quill/internal/memory"
)

// contentTypes are the kinds of content a session can produce.
var contentTypes = []string{"blog_post", "twitter_thread", "linkedin_post"}

var (
	agentLabel = color.New(color.FgCyan, color.Bold).SprintFunc()
	youLabel   = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// Console runs one session over a reader/writer pair. Production wires it to
// stdin/stdout; tests feed it scripted input.
type Console struct {
	engine *engine.Engine
	in     *bufio.Scanner
	out    io.Writer
	log    *zap.Logger
}

func New(eng *engine.Engine, in io.Reader, out io.Writer, log *zap.Logger) *Console {
	return &Console{
		engine: eng,
		in:     bufio.NewScanner(in),
		out:    out,
		log:    log,
	}
}

// Run drives the conversation until the user types exit or input ends.
// A resume session may be passed in; nil starts a fresh one.
func (c *Console) Run(ctx context.Context, resume *memory.SessionInfo, policy engine.Policy, contextWindow int) error {
	fmt.Fprintln(c.out, "Welcome to quill, your content creation assistant!")
	fmt.Fprintln(c.out, "Type 'exit' to quit at any time.")

	var (
		session *engine.Session
		opening string
		err     error
	)
	if resume != nil {
		session, opening, err = c.engine.ResumeSession(ctx, resume, policy, contextWindow)
	} else {
		session, opening, err = c.setupSession(ctx, policy, contextWindow)
	}
	if err != nil {
		return err
	}
	c.say(opening)

	for {
		fmt.Fprintf(c.out, "\n%s ", youLabel("You:"))
		if !c.in.Scan() {
			break
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			fmt.Fprintln(c.out, "Goodbye!")
			break
		}

		c.say(c.engine.ProcessInput(ctx, session, line))
	}
	return c.in.Err()
}

// setupSession asks for a content type and topic, then starts the session.
func (c *Console) setupSession(ctx context.Context, policy engine.Policy, contextWindow int) (*engine.Session, string, error) {
	fmt.Fprintln(c.out, "\nLet's start a new content creation session.")
	fmt.Fprintln(c.out, "What type of content would you like to create?")
	for i, contentType := range contentTypes {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, contentType)
	}

	contentType, err := c.pickContentType()
	if err != nil {
		return nil, "", err
	}

	fmt.Fprintf(c.out, "What's the main topic of your content? ")
	if !c.in.Scan() {
		return nil, "", fmt.Errorf("input ended before a topic was given")
	}
	topic := strings.TrimSpace(c.in.Text())

	return c.engine.StartSession(ctx, contentType, topic, policy, contextWindow)
}

func (c *Console) pickContentType() (string, error) {
	for {
		fmt.Fprintf(c.out, "Enter the number of your choice: ")
		if !c.in.Scan() {
			return "", fmt.Errorf("input ended before a content type was chosen")
		}
		choice, err := strconv.Atoi(strings.TrimSpace(c.in.Text()))
		if err != nil || choice < 1 || choice > len(contentTypes) {
			fmt.Fprintln(c.out, "Invalid choice. Please try again.")
			continue
		}
		return contentTypes[choice-1], nil
	}
}

func (c *Console) say(text string) {
	fmt.Fprintf(c.out, "\n%s %s\n", agentLabel("Agent:"), text)
}
