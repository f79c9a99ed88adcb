package services

import (
	"encoding/json"
	"sync"

	"github.com/gin-contrib/sessions"
	"github.com/yukikurage/stellar-tasks/internal/constants"
)

// SessionCache keeps a client's unconfirmed notices in its session, which is
// backed by redis in production and a signed cookie otherwise.
type SessionCache struct {
	session sessions.Session
}

// NewSessionCache wraps the request session.
func NewSessionCache(session sessions.Session) *SessionCache {
	return &SessionCache{session: session}
}

func (c *SessionCache) Notices() ([]Notice, error) {
	raw, ok := c.session.Get(constants.SessionKeyNotificationCache).(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var notices []Notice
	if err := json.Unmarshal([]byte(raw), &notices); err != nil {
		// A corrupt cache is dropped; the durable store still has the truth.
		c.session.Delete(constants.SessionKeyNotificationCache)
		return nil, c.session.Save()
	}
	return notices, nil
}

func (c *SessionCache) Add(n Notice) error {
	notices, err := c.Notices()
	if err != nil {
		return err
	}
	notices = append(notices, n)
	return c.save(notices)
}

func (c *SessionCache) MarkRead(id string) (bool, error) {
	notices, err := c.Notices()
	if err != nil {
		return false, err
	}
	found := false
	for i := range notices {
		if notices[i].ID == id {
			notices[i].Read = true
			found = true
		}
	}
	if !found {
		return false, nil
	}
	return true, c.save(notices)
}

func (c *SessionCache) save(notices []Notice) error {
	if len(notices) > constants.MaxClientCachedNotices {
		notices = notices[len(notices)-constants.MaxClientCachedNotices:]
	}
	raw, err := json.Marshal(notices)
	if err != nil {
		return err
	}
	c.session.Set(constants.SessionKeyNotificationCache, string(raw))
	return c.session.Save()
}

// MemoryCache is a ClientCache held in process memory.
type MemoryCache struct {
	mu      sync.Mutex
	notices []Notice
}

func NewMemoryCache(notices ...Notice) *MemoryCache {
	return &MemoryCache{notices: notices}
}

func (c *MemoryCache) Notices() ([]Notice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notice(nil), c.notices...), nil
}

func (c *MemoryCache) Add(n Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
	if len(c.notices) > constants.MaxClientCachedNotices {
		c.notices = c.notices[len(c.notices)-constants.MaxClientCachedNotices:]
	}
	return nil
}

func (c *MemoryCache) MarkRead(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	for i := range c.notices {
		if c.notices[i].ID == id {
			c.notices[i].Read = true
			found = true
		}
	}
	return found, nil
}
