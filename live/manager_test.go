package live

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadgate/internal/models"
)

func drain(t *testing.T, client *Client) Update {
	t.Helper()
	select {
	case update := <-client.Send:
		return update
	case <-time.After(time.Second):
		t.Fatal("no update received")
		return Update{}
	}
}

func TestSubscribePublish(t *testing.T) {
	m := NewManager()
	client := m.Subscribe(SessionTopic("s1"))
	defer m.Unsubscribe(client)

	m.Publish(SessionTopic("s1"), Update{Type: TypeSessionUpdate})
	got := drain(t, client)
	assert.Equal(t, TypeSessionUpdate, got.Type)

	// Irrelevant topic does not reach the client
	m.Publish(SessionTopic("other"), Update{Type: TypeSessionUpdate})
	select {
	case <-client.Send:
		t.Fatal("received update for a foreign topic")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	m := NewManager()
	client := m.Subscribe(GroupTopic("g1"), UserTopic("u1"))

	require.Equal(t, 1, m.SubscriberCount(GroupTopic("g1")))
	m.Unsubscribe(client)
	m.Unsubscribe(client)
	assert.Zero(t, m.SubscriberCount(GroupTopic("g1")))
	assert.Zero(t, m.SubscriberCount(UserTopic("u1")))

	_, open := <-client.Send
	assert.False(t, open, "channel is closed after unsubscribe")
}

func TestPublishPrunesFullClients(t *testing.T) {
	m := NewManager()
	stale := m.Subscribe(GroupTopic("g1"))
	healthy := m.Subscribe(GroupTopic("g1"))

	// Fill the stale client's buffer without draining it
	for i := 0; i < cap(stale.Send); i++ {
		stale.Send <- Update{}
	}

	m.Publish(GroupTopic("g1"), Update{Type: TypeGroupUpdate})

	assert.Equal(t, 1, m.SubscriberCount(GroupTopic("g1")), "full-buffer client is dropped")
	got := drain(t, healthy)
	assert.Equal(t, TypeGroupUpdate, got.Type)

	m.Unsubscribe(healthy)
}

func TestPublishConcurrentWithUnsubscribe(t *testing.T) {
	m := NewManager()
	topic := GroupTopic("g1")

	// A publisher mid-broadcast must never hit the channel a concurrent
	// Unsubscribe just closed.
	for i := 0; i < 500; i++ {
		client := m.Subscribe(topic)

		var wg sync.WaitGroup
		wg.Add(3)
		for p := 0; p < 2; p++ {
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					m.Publish(topic, Update{Type: TypeGroupUpdate})
				}
			}()
		}
		go func() {
			defer wg.Done()
			m.Unsubscribe(client)
		}()
		wg.Wait()
	}

	assert.Zero(t, m.SubscriberCount(topic))
}

func TestSessionUpdatedFansOut(t *testing.T) {
	m := NewManager()
	groupID := "g1"
	callerID := "u1"

	bySession := m.Subscribe(SessionTopic("s1"))
	byGroup := m.Subscribe(GroupTopic(groupID))
	byUser := m.Subscribe(UserTopic(callerID))
	defer func() {
		m.Unsubscribe(bySession)
		m.Unsubscribe(byGroup)
		m.Unsubscribe(byUser)
	}()

	session := &models.UploadSession{
		GroupID:  &groupID,
		CallerID: &callerID,
		Status:   models.SessionStatusUploaded,
	}
	session.ID = "s1"

	m.SessionUpdated(session)

	got := drain(t, bySession)
	assert.Equal(t, TypeSessionUpdate, got.Type)
	require.NotNil(t, got.Session)
	assert.Equal(t, models.SessionStatusUploaded, got.Session.Status)

	got = drain(t, byGroup)
	assert.Equal(t, TypeSessionUpdate, got.Type)

	got = drain(t, byUser)
	assert.Equal(t, TypeUserUpdate, got.Type)
}

func TestGroupUpdatedFansOut(t *testing.T) {
	m := NewManager()
	callerID := "u1"

	byGroup := m.Subscribe(GroupTopic("g1"))
	byUser := m.Subscribe(UserTopic(callerID))
	defer func() {
		m.Unsubscribe(byGroup)
		m.Unsubscribe(byUser)
	}()

	group := &models.UploadGroup{
		CallerID:       &callerID,
		Status:         models.GroupStatusCompleted,
		TotalFiles:     2,
		CompletedFiles: 2,
	}
	group.ID = "g1"

	m.GroupUpdated(group)

	got := drain(t, byGroup)
	assert.Equal(t, TypeGroupUpdate, got.Type)
	require.NotNil(t, got.Group)
	assert.Equal(t, 2, got.Group.CompletedFiles)

	got = drain(t, byUser)
	assert.Equal(t, TypeUserUpdate, got.Type)

	m.GroupUpdated(nil)
}
