package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/loxone-mcp/bridge/internal/config"
	"github.com/loxone-mcp/bridge/internal/credentials"
)

// runSetup prompts for and stores Miniserver credentials via the primary
// credential backend, per spec.md §6's "setup" command.
func runSetup(ctx context.Context, args []string) error {
	configPath, _ := commonFlags("setup", args)

	logger, err := quietLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	creds := credentialProvider(logger)

	reader := bufio.NewReader(os.Stdin)
	host := promptDefault(reader, "Miniserver host", cfg.Host)
	portStr := promptDefault(reader, "Miniserver port", strconv.Itoa(int(cfg.Port)))
	user := promptDefault(reader, "Username", cfg.User)
	password := promptSecret(reader, "Password")
	apiKey := promptDefault(reader, "SSE API key (blank to generate none)", cfg.APIKey)

	if _, err := strconv.Atoi(portStr); err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	for key, value := range map[string]string{
		credentials.KeyHost: host,
		credentials.KeyUser: user,
		credentials.KeyPass: password,
	} {
		if value == "" {
			continue
		}
		if err := creds.Set(key, credentials.Secret(value)); err != nil {
			return fmt.Errorf("storing %s: %w", key, err)
		}
	}
	if apiKey != "" {
		if err := creds.Set(credentials.KeyAPIKey, credentials.Secret(apiKey)); err != nil {
			return fmt.Errorf("storing %s: %w", credentials.KeyAPIKey, err)
		}
	}

	fmt.Println("credentials stored")
	return nil
}

func promptDefault(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func promptSecret(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
