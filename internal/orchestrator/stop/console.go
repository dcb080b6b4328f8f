package stop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/GriffinCanCode/recap/internal/trace"
)

// NamePrompt is printed after the stop keystroke.
const NamePrompt = "Enter a name for this session: "

// Listen waits for one line on in, fires sig, prompts on out and reads the
// session name from the next line. It returns early without prompting if
// sig was fired by another source first.
//
// Reads on in cannot be interrupted; callers run Listen in its own goroutine
// and should not wait for it once sig has a name.
func Listen(ctx context.Context, in io.Reader, out io.Writer, sig *Signal) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			errs <- err
			return
		}
		errs <- io.EOF
	}()

	select {
	case <-lines:
	case <-sig.Stopped():
		return nil
	case err := <-errs:
		// Input closed before any keystroke; other stop sources remain.
		trace.Logger(ctx).Debug("console input closed", "error", err)
		if err == io.EOF {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	if !sig.Trigger() {
		return nil
	}
	trace.Logger(ctx).Info("stop requested from console")

	_, _ = fmt.Fprint(out, NamePrompt)

	select {
	case line := <-lines:
		sig.SetName(strings.TrimSpace(line))
		return nil
	case err := <-errs:
		sig.SetName("")
		if err == io.EOF {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
