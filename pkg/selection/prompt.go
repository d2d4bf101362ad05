package selection

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/drivescribe/drivescribe/pkg/imagefile"
)

// TerminalPrompt asks risk confirmations on an interactive terminal.
type TerminalPrompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompt creates a prompt reading answers from in.
func NewTerminalPrompt(in io.Reader, out io.Writer) *TerminalPrompt {
	return &TerminalPrompt{in: bufio.NewReader(in), out: out}
}

// Display prints the warning and reads a yes/no answer. Answering no (the
// default) accepts the risk and continues; yes goes back to reselection.
func (p *TerminalPrompt) Display(ctx context.Context, opts PromptOptions) (bool, error) {
	fmt.Fprintf(p.out, "\nWarning: %s\n", opts.Description)
	fmt.Fprintf(p.out, "%s? [y = %s / N = %s]: ", opts.RejectLabel, opts.RejectLabel, opts.ConfirmLabel)

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// AutoAcceptPrompt accepts every risk without asking. Used when the
// operator passes --auto-accept-risk for unattended runs.
type AutoAcceptPrompt struct{}

func (AutoAcceptPrompt) Display(ctx context.Context, opts PromptOptions) (bool, error) {
	return false, nil
}

// TerminalSource reads replacement image paths from an interactive terminal
// when the user declines a risky candidate.
type TerminalSource struct {
	in       *bufio.Reader
	out      io.Writer
	resolver MetadataResolver
}

// NewTerminalSource creates a candidate source reading paths from in.
func NewTerminalSource(in io.Reader, out io.Writer, resolver MetadataResolver) *TerminalSource {
	return &TerminalSource{in: bufio.NewReader(in), out: out, resolver: resolver}
}

// Next prompts for a new image path and resolves its metadata.
func (s *TerminalSource) Next(ctx context.Context) (*imagefile.Descriptor, error) {
	fmt.Fprint(s.out, "Enter a new image path: ")
	line, err := s.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	return s.resolver.GetImageMetadata(ctx, strings.TrimSpace(line))
}
