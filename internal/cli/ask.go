package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/netra-go/internal/client"
	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

func newAskCommand(st *state) *cobra.Command {
	var (
		server string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask a running Netra server a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(server, client.WithLogger(st.logger))
			question := strings.Join(args, " ")
			if stream {
				return askStream(cmd.Context(), c, question, cmd.OutOrStdout())
			}
			return ask(cmd.Context(), c, question, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8000", "Netra API base URL")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the answer as it is generated")
	return cmd
}

func ask(ctx context.Context, c *client.Client, question string, out io.Writer) error {
	answer, err := c.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, answer.Response)
	printSources(out, answer.Sources)
	return nil
}

func askStream(ctx context.Context, c *client.Client, question string, out io.Writer) error {
	chunks, err := c.Stream(ctx, question)
	if err != nil {
		return err
	}
	for chunk := range chunks {
		switch chunk.Kind {
		case entities.ChunkToken:
			fmt.Fprint(out, chunk.Token)
		case entities.ChunkDone:
			fmt.Fprintln(out)
			printSources(out, chunk.Sources)
			return nil
		case entities.ChunkError:
			fmt.Fprintln(out)
			return errors.New(chunk.Error)
		}
	}
	return ctx.Err()
}

var sourcesLabel = color.New(color.FgCyan, color.Bold)

func printSources(out io.Writer, sources []string) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s %s\n", sourcesLabel.Sprint("Sources:"), strings.Join(sources, ", "))
}
