// Package client builds HTTP clients authorized for Google APIs. Three
// credential sources are supported: a service account given as an email and
// private key, a service account key file, and an OAuth desktop client whose
// token is obtained once through the browser by Authorize.
package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/ArionMiles/chatledger/pkg/config"
)

const (
	// callbackPort is the port for the local OAuth callback server.
	callbackPort = 8085
	// callbackPath is the path for the OAuth callback.
	callbackPath = "/callback"
	// serverTimeout is how long to wait for the OAuth callback.
	serverTimeout = 5 * time.Minute
)

// TokenFile is the default path of the OAuth token file.
const TokenFile = "data/token.json"

// ErrNoToken is returned when the OAuth client has not been authorized yet.
var ErrNoToken = errors.New("no OAuth token found, run 'chatledger setup'")

// Mode is the credential source in use.
type Mode string

const (
	ModeServiceAccount     Mode = "service_account"
	ModeServiceAccountFile Mode = "service_account_file"
	ModeOAuth              Mode = "oauth"
)

// Config holds the credential settings.
type Config struct {
	// CredentialsFile is an OAuth client secret or a service account key.
	CredentialsFile string
	// TokenFile stores the OAuth token. Defaults to TokenFile.
	TokenFile string
	// ServiceAccountEmail and PrivateKey take precedence over CredentialsFile.
	ServiceAccountEmail string
	PrivateKey          string
}

// FromConfig picks the credential settings out of the application config.
func FromConfig(cfg config.Config) Config {
	return Config{
		CredentialsFile:     cfg.CredentialsFile,
		TokenFile:           TokenFile,
		ServiceAccountEmail: cfg.ServiceAccountEmail,
		PrivateKey:          cfg.PrivateKey,
	}
}

func (c Config) tokenFile() string {
	if c.TokenFile == "" {
		return TokenFile
	}
	return c.TokenFile
}

// credentials is the part of a Google credentials file needed to tell its kind.
type credentials struct {
	Type      string          `json:"type"`
	Installed json.RawMessage `json:"installed"`
	Web       json.RawMessage `json:"web"`
}

// DetectMode reports which credential source cfg resolves to.
func DetectMode(cfg Config) (Mode, error) {
	mode, _, err := resolve(cfg)
	return mode, err
}

func resolve(cfg Config) (Mode, []byte, error) {
	if cfg.ServiceAccountEmail != "" && cfg.PrivateKey != "" {
		return ModeServiceAccount, nil, nil
	}
	if cfg.CredentialsFile == "" {
		return "", nil, errors.New("no Google credentials configured")
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return "", nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var c credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return "", nil, fmt.Errorf("parsing credentials file %s: %w", cfg.CredentialsFile, err)
	}
	switch {
	case c.Type == "service_account":
		return ModeServiceAccountFile, b, nil
	case c.Installed != nil || c.Web != nil:
		return ModeOAuth, b, nil
	default:
		return "", nil, fmt.Errorf("credentials file %s is neither a service account key nor an OAuth client", cfg.CredentialsFile)
	}
}

// New creates an HTTP client authorized for scopes. OAuth clients must have
// been authorized before; otherwise ErrNoToken is returned.
func New(ctx context.Context, cfg Config, scopes ...string) (*http.Client, error) {
	mode, b, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeServiceAccount:
		jc := &jwt.Config{
			Email:      cfg.ServiceAccountEmail,
			PrivateKey: []byte(cfg.PrivateKey),
			Scopes:     scopes,
			TokenURL:   google.JWTTokenURL,
		}
		return jc.Client(ctx), nil

	case ModeServiceAccountFile:
		jc, err := google.JWTConfigFromJSON(b, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parsing service account key: %w", err)
		}
		return jc.Client(ctx), nil

	default:
		oc, err := google.ConfigFromJSON(b, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parsing client secret: %w", err)
		}
		tok, err := LoadToken(cfg.tokenFile())
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		if err != nil {
			return nil, fmt.Errorf("reading token %s: %w", cfg.tokenFile(), err)
		}
		return oc.Client(ctx, tok), nil
	}
}

// Authorize runs the OAuth browser flow and saves the token. Service account
// credentials need no authorization and are left alone.
func Authorize(ctx context.Context, cfg Config, scopes ...string) (Mode, error) {
	mode, b, err := resolve(cfg)
	if err != nil {
		return "", err
	}
	if mode != ModeOAuth {
		return mode, nil
	}

	oc, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return mode, fmt.Errorf("parsing client secret: %w", err)
	}

	tok, err := tokenFromWeb(ctx, oc)
	if err != nil {
		return mode, err
	}
	if err := saveToken(cfg.tokenFile(), tok); err != nil {
		return mode, err
	}
	return mode, nil
}

func tokenFromWeb(ctx context.Context, oc *oauth2.Config) (*oauth2.Token, error) {
	oc.RedirectURL = fmt.Sprintf("http://localhost:%d%s", callbackPort, callbackPath)

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state token: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	server, err := startCallbackServer(ctx, state, codeChan, errChan)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline)

	fmt.Printf("\nOpening browser for Google authentication...\n")
	fmt.Printf("If the browser doesn't open automatically, visit this URL:\n%s\n\n", authURL)

	if err := openBrowser(ctx, authURL); err != nil {
		slog.Warn("failed to open browser automatically", "error", err)
	}

	timer := time.NewTimer(serverTimeout)
	defer timer.Stop()

	select {
	case code := <-codeChan:
		tok, err := oc.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code for token: %w", err)
		}
		fmt.Println("Authentication successful!")
		return tok, nil
	case err := <-errChan:
		return nil, fmt.Errorf("oauth callback error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("oauth flow timed out after %v", serverTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body style="font-family: sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #4CAF50;">✓ chatledger is connected</h1>
<p>You can close this window and return to the terminal.</p>
</div>
</body>
</html>`

// callbackHandler receives the redirect from Google. Exactly one value is
// sent on codeChan or errChan per request; both must be buffered.
func callbackHandler(expectedState string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != expectedState {
			report(errChan, errors.New("invalid state parameter"))
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		if errMsg := q.Get("error"); errMsg != "" {
			report(errChan, fmt.Errorf("%s: %s", errMsg, q.Get("error_description")))
			http.Error(w, fmt.Sprintf("Authentication failed: %s", errMsg), http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			report(errChan, errors.New("no authorization code received"))
			http.Error(w, "No authorization code received", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, successPage)

		select {
		case codeChan <- code:
		default:
		}
	}
}

// report drops err when an earlier result is still pending.
func report(errChan chan<- error, err error) {
	select {
	case errChan <- err:
	default:
	}
}

func startCallbackServer(ctx context.Context, expectedState string, codeChan chan<- string, errChan chan<- error) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, callbackHandler(expectedState, codeChan, errChan))

	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", callbackPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("port %d unavailable: %w", callbackPort, err)
	}

	go func() {
		slog.Debug("starting OAuth callback server", "port", callbackPort)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("callback server error", "error", err)
			report(errChan, err)
		}
	}()

	return server, nil
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// LoadToken reads a saved OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	slog.Info("saving credential file", "path", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
