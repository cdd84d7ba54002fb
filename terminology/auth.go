package terminology

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/clinterm/medspan/helper"
)

// tgtLifetime is how long a ticket-granting ticket is reused before a
// fresh one is requested. UMLS grants them for roughly eight hours.
const tgtLifetime = 8 * time.Hour

// umlsServiceURL is the fixed service parameter UMLS expects when
// exchanging a ticket-granting ticket for a single-use service ticket.
const umlsServiceURL = "http://umlsks.nlm.nih.gov"

// AuthSession implements the UMLS two-step ticket flow. The
// ticket-granting ticket URL is cached across calls; service tickets
// are single use and requested fresh for every API request. Safe for
// concurrent use.
type AuthSession struct {
	authURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time

	mu        sync.RWMutex
	tgtURL    string
	tgtExpiry time.Time
}

// NewAuthSession creates a session against the given CAS endpoint.
func NewAuthSession(authURL, apiKey string, httpClient *http.Client) *AuthSession {
	return &AuthSession{
		authURL:    authURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// ServiceTicket returns a fresh single-use service ticket, obtaining or
// reusing the underlying ticket-granting ticket as needed.
func (s *AuthSession) ServiceTicket(ctx context.Context) (string, error) {
	tgtURL, err := s.grantingTicketURL(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{"service": {umlsServiceURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tgtURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", helper.NewError("create service ticket request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", helper.NewError("request service ticket", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The granting ticket may have been revoked early, drop it so
		// the next call re-authenticates.
		s.invalidate()
		return "", helper.NewError("request service ticket", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", helper.NewError("read service ticket", err)
	}

	ticket := strings.TrimSpace(string(body))
	if ticket == "" {
		return "", helper.NewError("read service ticket", fmt.Errorf("empty ticket body"))
	}

	return ticket, nil
}

// grantingTicketURL returns the cached ticket-granting ticket URL or
// requests a new one when missing or expired.
func (s *AuthSession) grantingTicketURL(ctx context.Context) (string, error) {
	s.mu.RLock()
	cached, expiry := s.tgtURL, s.tgtExpiry
	s.mu.RUnlock()

	if cached != "" && s.now().Before(expiry) {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if s.tgtURL != "" && s.now().Before(s.tgtExpiry) {
		return s.tgtURL, nil
	}

	form := url.Values{"apikey": {s.apiKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", helper.NewError("create granting ticket request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", helper.NewError("request granting ticket", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", helper.NewError("request granting ticket", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", helper.NewError("request granting ticket", fmt.Errorf("missing location header"))
	}

	s.tgtURL = location
	s.tgtExpiry = s.now().Add(tgtLifetime)

	return s.tgtURL, nil
}

func (s *AuthSession) invalidate() {
	s.mu.Lock()
	s.tgtURL = ""
	s.tgtExpiry = time.Time{}
	s.mu.Unlock()
}
