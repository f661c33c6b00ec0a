package service

import (
	"sync"
	"testing"

	"github.com/monmlabs/monm-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu         sync.Mutex
	messages   []*model.Message
	recipients [][]string
}

func (n *captureNotifier) NewMessage(msg *model.Message, recipientIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	n.recipients = append(n.recipients, recipientIDs)
}

func TestSendAndList(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	notifier := &captureNotifier{}
	svc := newTestMessageService(t, database, notifier)

	message, err := svc.Send(conversation.ID, alice.ID, b64("hello-cipher"), b64("iv"), b64("tag"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello-cipher"), message.PayloadEncrypted)
	assert.Equal(t, alice.ID, message.SenderID)

	messages, err := svc.List(conversation.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, message.ID, messages[0].ID)

	// Fan-out goes to the other participants only
	require.Len(t, notifier.recipients, 1)
	assert.Equal(t, []string{bob.ID}, notifier.recipients[0])
}

func TestSendRejectsNonParticipant(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	eve := createTestUser(t, database, "eve")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc := newTestMessageService(t, database, NoopNotifier{})

	_, err := svc.Send(conversation.ID, eve.ID, b64("x"), b64("y"), b64("z"))
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSendRejectsInvalidBase64(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc := newTestMessageService(t, database, NoopNotifier{})

	_, err := svc.Send(conversation.ID, alice.ID, "not base64 !!!", b64("iv"), b64("tag"))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestListRejectsNonParticipant(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	eve := createTestUser(t, database, "eve")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc := newTestMessageService(t, database, NoopNotifier{})
	sendTestMessage(t, svc, conversation.ID, alice.ID)

	_, err := svc.List(conversation.ID, eve.ID)
	require.ErrorIs(t, err, ErrForbidden)
}
