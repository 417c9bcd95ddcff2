package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/perchlabs/perch/internal/deeplink"
	"github.com/perchlabs/perch/internal/tui/view"
)

// sharedTranscript is the payload the share service returns for a token.
type sharedTranscript struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

var sharedClient = &http.Client{Timeout: 30 * time.Second}

// OpenSharedFromDeepLink drives the shared-session screen through its
// loading, loaded and error phases for the transcript a deep link points
// at. It handles every failure itself by landing on the error phase, so it
// never returns an error to the caller.
func OpenSharedFromDeepLink(ctx context.Context, link *deeplink.Link, setView view.SetFunc, baseURL string) {
	token := link.Param("token")
	remote, hasRemote := link.RemoteURL()

	opts := view.SharedSessionOptions{
		Token:   token,
		BaseURL: baseURL,
		Loading: true,
	}
	setView(view.SharedSession, opts)

	endpoint := remote
	if !hasRemote {
		if token == "" {
			opts.Loading = false
			opts.Error = "shared session link carries no token or url"
			setView(view.SharedSession, opts)
			return
		}
		endpoint = fmt.Sprintf("%s/share/%s.json", baseURL, token)
	}

	transcript, err := fetchShared(ctx, endpoint)
	if err != nil {
		slog.Warn("failed to load shared session", "endpoint", endpoint, "error", err)
		opts.Loading = false
		opts.Error = "This shared session could not be loaded."
		setView(view.SharedSession, opts)
		return
	}

	opts.Loading = false
	opts.Title = transcript.Title
	opts.Markdown = transcript.Markdown
	setView(view.SharedSession, opts)
}

func fetchShared(ctx context.Context, endpoint string) (sharedTranscript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sharedTranscript{}, fmt.Errorf("failed to build share request: %w", err)
	}

	resp, err := sharedClient.Do(req)
	if err != nil {
		return sharedTranscript{}, fmt.Errorf("failed to fetch shared session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sharedTranscript{}, fmt.Errorf("share service returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return sharedTranscript{}, fmt.Errorf("failed to read shared session: %w", err)
	}

	var transcript sharedTranscript
	if err := json.Unmarshal(body, &transcript); err != nil {
		return sharedTranscript{}, fmt.Errorf("failed to parse shared session: %w", err)
	}
	return transcript, nil
}

// ShareURL is the public link for a session's share token.
func ShareURL(baseURL, token string) string {
	return fmt.Sprintf("%s/s/%s", baseURL, token)
}
