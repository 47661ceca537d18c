package main

import (
	"context"
	"fmt"

	"github.com/loxone-mcp/bridge/internal/credentials"
)

// runClear removes stored credentials from every configured backend, per
// spec.md §6's "clear" command.
func runClear(ctx context.Context, args []string) error {
	_, _ = commonFlags("clear", args)

	logger, err := quietLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// The environment backend is read-only (credentials.EnvStore.Delete
	// always errors); Delete's per-backend warning already covers that
	// case, so a failure here just means nothing writable was configured.
	creds := credentialProvider(logger)
	for _, key := range []string{credentials.KeyHost, credentials.KeyUser, credentials.KeyPass, credentials.KeyAPIKey} {
		_ = creds.Delete(key)
	}

	fmt.Println("credentials cleared from any writable backend")
	return nil
}
