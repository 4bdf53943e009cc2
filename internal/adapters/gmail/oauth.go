package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Scopes requested by the scanner: read for scans, send for outbound requests
var Scopes = []string{gmail.GmailReadonlyScope, gmail.GmailSendScope}

// AuthConfig locates the OAuth client secret and the cached user token
type AuthConfig struct {
	CredentialsFile string
	TokenFile       string
}

// NewService builds an authenticated Gmail service, running the interactive
// consent flow when no cached token exists.
func NewService(ctx context.Context, cfg AuthConfig, in io.Reader, out io.Writer, logger *zap.Logger) (*gmail.Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read credentials file %s: %w", cfg.CredentialsFile, err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("cannot parse credentials file: %w", err)
	}

	tok, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		logger.Info("No cached token, starting OAuth flow", zap.String("token_file", cfg.TokenFile))
		tok, err = getTokenFromWeb(ctx, config, in, out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(cfg.TokenFile, tok); err != nil {
			logger.Warn("Cannot save token", zap.Error(err))
		} else {
			logger.Info("Token saved", zap.String("token_file", cfg.TokenFile))
		}
	}

	srv, err := gmail.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("cannot create gmail service: %w", err)
	}
	return srv, nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintln(out, "Open this URL in your browser and grant access:")
	fmt.Fprintln(out, authURL)
	fmt.Fprint(out, "Paste the authorization code here: ")

	authCode, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && authCode == "" {
		return nil, fmt.Errorf("cannot read auth code: %w", err)
	}

	tok, err := config.Exchange(ctx, strings.TrimSpace(authCode))
	if err != nil {
		return nil, fmt.Errorf("cannot exchange code for token: %w", err)
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(tok)
}
