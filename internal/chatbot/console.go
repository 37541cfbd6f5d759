package chatbot

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Console is the interactive front end: a line-oriented REPL speaking the
// same command convention as any other chat adapter.
type Console struct {
	bot  *Bot
	user string
	in   io.Reader
	out  io.Writer
}

func NewConsole(bot *Bot, user string, in io.Reader, out io.Writer) *Console {
	return &Console{bot: bot, user: user, in: in, out: out}
}

// Run reads commands until EOF or ctx is done. Jobs created from actions
// with streaming enabled have their output followed inline.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)

	fmt.Fprintf(c.out, "connected as %s, type 'help' for commands\n", c.user)
	fmt.Fprint(c.out, "> ")

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result := c.bot.HandleMessage(ctx, c.user, scanner.Text())
		for _, reply := range result.Replies {
			fmt.Fprintln(c.out, reply)
		}
		if result.JobID != "" && result.Stream {
			c.bot.FollowJob(ctx, result.JobID, func(line string) {
				fmt.Fprintln(c.out, line)
			})
		}

		fmt.Fprint(c.out, "> ")
	}
	return scanner.Err()
}
