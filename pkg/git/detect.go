// Package git reads identity information from the user's git configuration.
package git

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const lookupTimeout = 5 * time.Second

// UserName returns git's configured user.name as seen from dir, or "" when
// git is unavailable or no name is configured.
func UserName(dir string) string {
	return configValue(dir, "user.name")
}

// UserEmail returns git's configured user.email as seen from dir, or "".
func UserEmail(dir string) string {
	return configValue(dir, "user.email")
}

func configValue(dir, key string) string {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "config", "--get", key)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
