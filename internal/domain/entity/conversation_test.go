package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendora/pkg/errors"
)

func TestConversationKeySymmetry(t *testing.T) {
	ab, err := ConversationKey("alice", "bob", ConversationUserVendor, "vendor-1")
	require.NoError(t, err)

	ba, err := ConversationKey("bob", "alice", ConversationUserVendor, "vendor-1")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestConversationKeyDistinctContexts(t *testing.T) {
	k1, err := ConversationKey("alice", "bob", ConversationUserVendor, "vendor-1")
	require.NoError(t, err)

	k2, err := ConversationKey("alice", "bob", ConversationUserVendor, "vendor-2")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestConversationKeySelfDescribing(t *testing.T) {
	key, err := ConversationKey("bob", "alice", ConversationUserVendor, "vendor-1")
	require.NoError(t, err)

	assert.Equal(t, "user-vendor_vendor-1_alice_bob", key)
}

func TestConversationKeyEmptyParticipant(t *testing.T) {
	_, err := ConversationKey("", "bob", ConversationUserVendor, "vendor-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "INVALID_PARTICIPANT"))

	_, err = ConversationKey("alice", "", ConversationAdminUser, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "INVALID_PARTICIPANT"))
}

func TestPartner(t *testing.T) {
	conv := &Conversation{Participants: []string{"alice", "bob"}}

	assert.Equal(t, "bob", conv.Partner("alice"))
	assert.Equal(t, "alice", conv.Partner("bob"))
	assert.Equal(t, "alice", conv.Partner("mallory"))
}

func TestUnreadFor(t *testing.T) {
	conv := &Conversation{UnreadCounts: map[string]int{"alice": 3}}

	assert.Equal(t, 3, conv.UnreadFor("alice"))
	assert.Equal(t, 0, conv.UnreadFor("bob"))

	empty := &Conversation{}
	assert.Equal(t, 0, empty.UnreadFor("alice"))
}

func TestHasHistory(t *testing.T) {
	assert.True(t, (&Conversation{}).HasHistory())
	assert.False(t, (&Conversation{Ephemeral: true}).HasHistory())
}

func TestTypeDisplay(t *testing.T) {
	assert.Equal(t, "Vendor", ConversationUserVendor.Display().Label)
	assert.Equal(t, "Support", ConversationAdminUser.Display().Label)
	assert.Equal(t, "Vendor Support", ConversationAdminVendor.Display().Label)
}
