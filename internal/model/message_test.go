package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDCommutative(t *testing.T) {
	assert.Equal(t, ConversationID(3, 7), ConversationID(7, 3))
	assert.Equal(t, "3_7", ConversationID(7, 3))
}

func TestConversationIDDistinctPairs(t *testing.T) {
	assert.NotEqual(t, ConversationID(1, 23), ConversationID(12, 3))
	assert.Equal(t, "1_23", ConversationID(1, 23))
	assert.Equal(t, "3_12", ConversationID(12, 3))
}
