package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/perbu/artifacts/internal/digest"
)

// Run executes the digest command
func (c *DigestCmd) Run(ctx *Context) error {
	period := digest.Daily(time.Now())
	if c.Since != "" {
		d, err := parseSinceDuration(c.Since)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		period = digest.Last(time.Now(), d)
	}

	if !c.Send {
		if c.DryRun {
			return fmt.Errorf("--dry-run only applies with --send")
		}
		md, err := ctx.Services.Digest.Preview(period)
		if err != nil {
			return err
		}
		fmt.Print(md)
		return nil
	}

	if !ctx.Quiet {
		fmt.Printf("Sending digest for %s\n", period)
	}
	result, err := ctx.Services.Digest.Send(ctx.Ctx, period, c.DryRun, os.Stdout)
	if err != nil {
		return err
	}

	if !ctx.Quiet {
		fmt.Printf("Done: %d sent, %d skipped, %d failed (of %d recipients)\n",
			result.Sent, result.Skipped, result.Errors, result.Recipients)
	}
	if result.Errors > 0 {
		return fmt.Errorf("%d digest(s) failed to send", result.Errors)
	}
	return nil
}
