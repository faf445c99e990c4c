// Package live pushes upload progress to connected subscribers. The registry
// is in-process, ephemeral state: it is never the system of record and a
// restarted process rebuilds every snapshot from the database on the next
// subscribe.
package live

import (
	"sync"
	"time"

	"uploadgate/internal/logger"
	"uploadgate/internal/models"
)

// Update is one message on the live channel. A failed entity shows up as a
// normal update carrying its failed status; the channel never emits error
// frames.
type Update struct {
	Type      string                 `json:"type"` // connected|group_update|session_update|user_update
	Group     *models.UploadGroup    `json:"group,omitempty"`
	Session   *models.UploadSession  `json:"session,omitempty"`
	Sessions  []models.UploadSession `json:"sessions,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	TypeConnected     = "connected"
	TypeGroupUpdate   = "group_update"
	TypeSessionUpdate = "session_update"
	TypeUserUpdate    = "user_update"
)

// Topic keys. Subscribers pick one entity to watch.
func GroupTopic(id string) string   { return "group:" + id }
func SessionTopic(id string) string { return "session:" + id }
func UserTopic(id string) string    { return "user:" + id }

// Client is one live subscriber connection.
type Client struct {
	Send   chan Update
	topics []string
}

// Manager is the subscriber registry. Dead clients are pruned lazily when a
// send can no longer reach them, not proactively.
type Manager struct {
	mu   sync.RWMutex
	subs map[string]map[*Client]struct{}
}

func NewManager() *Manager {
	return &Manager{
		subs: make(map[string]map[*Client]struct{}),
	}
}

// Subscribe registers a client on the given topics.
func (m *Manager) Subscribe(topics ...string) *Client {
	client := &Client{
		Send:   make(chan Update, 16),
		topics: topics,
	}

	m.mu.Lock()
	for _, topic := range topics {
		if m.subs[topic] == nil {
			m.subs[topic] = make(map[*Client]struct{})
		}
		m.subs[topic][client] = struct{}{}
	}
	m.mu.Unlock()

	return client
}

// Unsubscribe removes the client from every topic and closes its channel.
// Safe to call more than once.
func (m *Manager) Unsubscribe(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(client)
}

func (m *Manager) removeLocked(client *Client) {
	removed := false
	for _, topic := range client.topics {
		if set, ok := m.subs[topic]; ok {
			if _, present := set[client]; present {
				delete(set, client)
				removed = true
			}
			if len(set) == 0 {
				delete(m.subs, topic)
			}
		}
	}
	if removed {
		close(client.Send)
	}
}

// Publish delivers an update to every subscriber of the topic. A client whose
// buffer is full is treated as gone and dropped. Sends happen under the read
// lock; Send is only closed under the write lock, so a send never races a
// concurrent Unsubscribe closing the channel.
func (m *Manager) Publish(topic string, update Update) {
	m.mu.RLock()
	var stale []*Client
	for client := range m.subs[topic] {
		select {
		case client.Send <- update:
		default:
			stale = append(stale, client)
		}
	}
	m.mu.RUnlock()

	if len(stale) > 0 {
		m.mu.Lock()
		for _, client := range stale {
			m.removeLocked(client)
		}
		m.mu.Unlock()
		logger.Debug("pruned stale live subscribers", "topic", topic, "count", len(stale))
	}
}

// SubscriberCount reports how many clients watch a topic.
func (m *Manager) SubscriberCount(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[topic])
}

// SessionUpdated fans a session change out to its session, group and caller
// subscribers. Implements the controller's broadcaster dependency.
func (m *Manager) SessionUpdated(session *models.UploadSession) {
	if session == nil {
		return
	}
	now := time.Now().UTC()

	m.Publish(SessionTopic(session.ID), Update{
		Type:      TypeSessionUpdate,
		Session:   session,
		Timestamp: now,
	})
	if session.GroupID != nil {
		m.Publish(GroupTopic(*session.GroupID), Update{
			Type:      TypeSessionUpdate,
			Session:   session,
			Timestamp: now,
		})
	}
	if session.CallerID != nil {
		m.Publish(UserTopic(*session.CallerID), Update{
			Type:      TypeUserUpdate,
			Session:   session,
			Timestamp: now,
		})
	}
}

// GroupUpdated fans a group change out to its group and caller subscribers.
func (m *Manager) GroupUpdated(group *models.UploadGroup) {
	if group == nil {
		return
	}
	now := time.Now().UTC()

	m.Publish(GroupTopic(group.ID), Update{
		Type:      TypeGroupUpdate,
		Group:     group,
		Timestamp: now,
	})
	if group.CallerID != nil {
		m.Publish(UserTopic(*group.CallerID), Update{
			Type:      TypeUserUpdate,
			Group:     group,
			Timestamp: now,
		})
	}
}
