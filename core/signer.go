package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// BotTokenSigner sets the "Authorization: Bot <token>" header.
type BotTokenSigner struct {
	Token string
}

func (s BotTokenSigner) Sign(_ context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("core: http request is required")
	}
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Token), "Bot "))
	if token == "" {
		return fmt.Errorf("core: bot token is required for signing")
	}
	req.Header.Set("Authorization", "Bot "+token)
	return nil
}
