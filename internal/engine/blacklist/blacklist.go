// Package blacklist loads the creator rug-history list the engine consults.
// The mapping is produced by an out-of-band moderator workflow; this package
// only reads it, at startup and on a periodic refresh. A creator added at
// time T affects scans whose engine stage begins after the next reload.
package blacklist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// RefreshInterval is how often the source is re-read
const RefreshInterval = 5 * time.Minute

// Entry is one blacklisted creator
type Entry struct {
	Chain     domain.Chain `yaml:"chain"`
	Address   string       `yaml:"address"`
	Incidents int          `yaml:"incidents"`
}

type fileFormat struct {
	Creators []Entry `yaml:"creators"`
}

// Blacklist is the in-memory creator index, safe for concurrent reads
type Blacklist struct {
	source string

	mu      sync.RWMutex
	entries map[string]int

	stopCh chan struct{}
}

// Load reads the source (file path or http(s) URL) once. An empty source
// yields an empty, permanently-clean blacklist.
func Load(source string) (*Blacklist, error) {
	b := &Blacklist{
		source:  source,
		entries: make(map[string]int),
		stopCh:  make(chan struct{}),
	}
	if source == "" {
		return b, nil
	}
	if err := b.reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// StartRefresh begins the periodic reload loop. A failed reload keeps the
// previous entries.
func (b *Blacklist) StartRefresh() {
	go func() {
		ticker := time.NewTicker(RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopCh:
				return
			case <-ticker.C:
				if err := b.reload(); err != nil {
					log.Warn().Err(err).Str("source", b.source).Msg("blacklist refresh failed, keeping previous entries")
				}
			}
		}
	}()
}

// Stop ends the refresh loop
func (b *Blacklist) Stop() { close(b.stopCh) }

// Incidents reports the recorded incident count for a creator, 0 if unknown
func (b *Blacklist) Incidents(chain domain.Chain, creator string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.entries[key(chain, creator)]
}

// Size reports the number of blacklisted creators, for health output
func (b *Blacklist) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Blacklist) reload() error {
	data, err := b.read()
	if err != nil {
		return err
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse blacklist: %w", err)
	}

	entries := make(map[string]int, len(parsed.Creators))
	for _, e := range parsed.Creators {
		incidents := e.Incidents
		if incidents <= 0 {
			incidents = 1
		}
		entries[key(e.Chain, domain.NormalizeAddress(e.Chain, e.Address))] = incidents
	}

	b.mu.Lock()
	b.entries = entries
	b.mu.Unlock()

	log.Info().Int("creators", len(entries)).Str("source", b.source).Msg("creator blacklist loaded")
	return nil
}

func (b *Blacklist) read() ([]byte, error) {
	if strings.HasPrefix(b.source, "http://") || strings.HasPrefix(b.source, "https://") {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch blacklist: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch blacklist: status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	}
	return os.ReadFile(b.source)
}

func key(chain domain.Chain, creator string) string {
	return string(chain) + ":" + domain.NormalizeAddress(chain, creator)
}
