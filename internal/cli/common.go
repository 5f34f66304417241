package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/service"
)

// Context holds common dependencies for CLI commands
type Context struct {
	Ctx      context.Context // cancelled on SIGINT/SIGTERM
	DB       *db.DB
	Config   *config.Config
	Services *service.Services
	Verbose  bool
	Quiet    bool
}

// token returns the API token or an error naming where it is looked up
func (c *Context) token() (string, error) {
	token := c.Config.GetToken()
	if token == "" {
		return "", fmt.Errorf("no API token: set api.token or %s", c.Config.API.TokenEnv)
	}
	return token, nil
}

// outputJSON outputs v as indented JSON
func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// parseSinceDuration parses durations like "7d", "1w" and "24h". The
// duration must be positive.
func parseSinceDuration(s string) (time.Duration, error) {
	d, err := parseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %s", s)
	}
	return d, nil
}

func parseDuration(s string) (time.Duration, error) {
	if len(s) == 0 {
		return 24 * time.Hour, nil
	}

	lastChar := s[len(s)-1]
	numPart := s[:len(s)-1]

	var multiplier time.Duration
	switch lastChar {
	case 'd':
		multiplier = 24 * time.Hour
	case 'w':
		multiplier = 7 * 24 * time.Hour
	case 'h':
		multiplier = time.Hour
	case 'm':
		multiplier = time.Minute
	default:
		// Try standard Go duration parsing
		return time.ParseDuration(s)
	}

	num, err := strconv.Atoi(numPart)
	if err != nil {
		// Compound values such as "1h30m"
		if d, perr := time.ParseDuration(s); perr == nil {
			return d, nil
		}
		return 0, fmt.Errorf("invalid number: %s", numPart)
	}

	return time.Duration(num) * multiplier, nil
}
