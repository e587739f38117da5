// Package cli runs the interactive question loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
	"github.com/kirillkom/adaptive-retrieval/internal/core/ports"
)

var exitWords = map[string]bool{"sair": true, "exit": true, "quit": true}

type Chat struct {
	answerer ports.QuestionAnswerer
	strategy domain.StrategyID
	k        int
	in       io.Reader
	out      io.Writer
	logger   *zap.Logger
}

func NewChat(answerer ports.QuestionAnswerer, strategy domain.StrategyID, k int, in io.Reader, out io.Writer, logger *zap.Logger) *Chat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{answerer: answerer, strategy: strategy, k: k, in: in, out: out, logger: logger}
}

// Run reads questions until an exit word, EOF or cancellation. A failed
// question is reported and the loop continues.
func (c *Chat) Run(ctx context.Context, banner string) error {
	fmt.Fprintln(c.out, banner)
	fmt.Fprintln(c.out, "Type your question, or 'exit' to quit.")

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(c.out, "\nQuestion: ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if exitWords[strings.ToLower(question)] {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}
		if question == "" {
			continue
		}

		answer, err := c.answerer.Answer(ctx, question, c.k, c.strategy)
		if err != nil {
			c.logger.Debug("chat_question_failed", zap.String("kind", domain.KindOf(err)), zap.Error(err))
			fmt.Fprintf(c.out, "\nAn error occurred: %v\n", err)
			continue
		}
		fmt.Fprintln(c.out, "\nAnswer:")
		fmt.Fprintln(c.out, answer.Text)
	}
}
