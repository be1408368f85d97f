package classes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/okian/rgtrack/internal/domain/gpt"
	"github.com/okian/rgtrack/pkg/logger"
)

// arcDans maps ARC's dan names onto IIDXDans values. ARC sends two different
// code points for the 2nd dan.
var arcDans = map[string]string{
	"皆伝": "KAIDEN",
	"中伝": "CHUUDEN",
	"十段": "DAN_10",
	"九段": "DAN_9",
	"八段": "DAN_8",
	"七段": "DAN_7",
	"六段": "DAN_6",
	"五段": "DAN_5",
	"四段": "DAN_4",
	"三段": "DAN_3",
	"二段": "DAN_2",
	"⼆段": "DAN_2",
	"初段": "DAN_1",
	"一級": "KYU_1",
	"二級": "KYU_2",
	"三級": "KYU_3",
	"四級": "KYU_4",
	"五級": "KYU_5",
	"六級": "KYU_6",
	"七級": "KYU_7",
}

type arcProfiles struct {
	Items []struct {
		SP *struct {
			Rank *string `json:"rank"`
		} `json:"sp"`
		DP *struct {
			Rank *string `json:"rank"`
		} `json:"dp"`
	} `json:"_items"`
}

// ARCOption configures an ARCClient.
type ARCOption func(*ARCClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ARCOption {
	return func(a *ARCClient) {
		if c != nil {
			a.http = c
		}
	}
}

// WithBreakerSettings tunes the circuit breaker around ARC requests.
func WithBreakerSettings(failures uint32, openFor time.Duration) ARCOption {
	return func(a *ARCClient) {
		if failures > 0 {
			a.failures = failures
		}
		if openFor > 0 {
			a.openFor = openFor
		}
	}
}

// ARCClient reads IIDX dans from the ARC profile API.
type ARCClient struct {
	baseURL  string
	http     *http.Client
	failures uint32
	openFor  time.Duration
	cb       *gobreaker.CircuitBreaker[[]byte]
	log      logger.Logger
}

// NewARCClient creates a client for the ARC API at baseURL.
func NewARCClient(baseURL string, opts ...ARCOption) *ARCClient {
	a := &ARCClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		failures: 5,
		openFor:  30 * time.Second,
		log:      logger.Named("arc"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "arc",
		Timeout: a.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= a.failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name), logger.String("from", from.String()), logger.String("to", to.String()))
		},
	})
	return a
}

func (a *ARCClient) fetch(ctx context.Context, profileID, token string) (*arcProfiles, error) {
	u, err := url.Parse(a.baseURL + "/api/v1/iidx/28/profiles/")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrARCUnavailable, err)
	}
	q := u.Query()
	q.Set("_id", profileID)
	u.RawQuery = q.Encode()

	body, err := a.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := a.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d", res.StatusCode)
		}
		return io.ReadAll(io.LimitReader(res.Body, 1<<20))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrARCUnavailable, err)
	}

	var p arcProfiles
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrARCUnavailable, err)
	}
	return &p, nil
}

// Provider fetches the profile once and returns a Provider that reads the SP or DP dan
// from it. Fetch errors and unknown dans yield no classes.
func (a *ARCClient) Provider(ctx context.Context, profileID, token string) Provider {
	profile, fetchErr := a.fetch(ctx, profileID, token)

	return func(ctx context.Context, cfg *gpt.Config, userID int) map[string]int {
		if fetchErr != nil {
			a.log.Error(ctx, "could not update classes from ARC", logger.Error(fetchErr), logger.Int("user_id", userID))
			return nil
		}
		if cfg.Game != "iidx" || len(profile.Items) == 0 {
			return nil
		}

		item := profile.Items[0]
		var rank *string
		switch cfg.Playtype {
		case "SP":
			if item.SP != nil {
				rank = item.SP.Rank
			}
		case "DP":
			if item.DP != nil {
				rank = item.DP.Rank
			}
		}
		if rank == nil {
			return nil
		}

		dan, ok := arcDans[strings.TrimSpace(*rank)]
		if !ok {
			a.log.Warn(ctx, "invalid dan sent from ARC, ignoring", logger.String("rank", *rank))
			return nil
		}
		idx := cfg.ClassIndex("dan", dan)
		if idx < 0 {
			return nil
		}
		return map[string]int{"dan": idx}
	}
}
