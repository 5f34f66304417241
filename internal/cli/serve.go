package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/perbu/artifacts/internal/web"
)

// Run executes the serve command. Without live runners the server only
// shows the journal.
func (c *ServeCmd) Run(ctx *Context) error {
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	server, err := web.NewServer(ctx.DB, addr)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if !ctx.Quiet {
		fmt.Printf("Starting web server at %s\n", server.Address())
		fmt.Printf("Press Ctrl+C to stop\n")
	}

	return server.Start(ctx.Ctx)
}
