package material

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lecturedesk/lecturedesk/internal/utils"
	log "github.com/sirupsen/logrus"
)

// DefaultPendingTTL is how long a rejected upload stays available for a retry.
const DefaultPendingTTL = 15 * time.Minute

type pendingUpload struct {
	scope   string
	req     UploadRequest
	expires time.Time
}

// PendingUploads keeps the form of rejected uploads in memory, so that the user can
// retry without selecting the file again. Entries belong to the scope that stored
// them and expire after the TTL.
type PendingUploads struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock utils.Clock
	items map[string]pendingUpload
}

func NewPendingUploads(ttl time.Duration, clock utils.Clock) *PendingUploads {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &PendingUploads{
		ttl:   ttl,
		clock: clock,
		items: make(map[string]pendingUpload),
	}
}

// Put stores req and returns the token that retrieves it.
func (p *PendingUploads) Put(scope string, req UploadRequest) string {
	token := uuid.NewString()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[token] = pendingUpload{scope: scope, req: req, expires: p.clock.Now().Add(p.ttl)}
	return token
}

func (p *PendingUploads) Get(scope, token string) (UploadRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	item, ok := p.items[token]
	if !ok || item.scope != scope {
		return UploadRequest{}, false
	}
	if !p.clock.Now().Before(item.expires) {
		delete(p.items, token)
		return UploadRequest{}, false
	}
	return item.req, true
}

func (p *PendingUploads) Delete(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, token)
}

// Sweep drops expired entries.
func (p *PendingUploads) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	removed := 0
	for token, item := range p.items {
		if !now.Before(item.expires) {
			delete(p.items, token)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("Dropped %d expired pending upload(s)", removed)
	}
	return removed
}

func (p *PendingUploads) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
