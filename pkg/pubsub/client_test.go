package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/hh/topics/events", TopicResourceName("hh", "events"))
	assert.Equal(t, "projects/other/topics/events", TopicResourceName("hh", "projects/other/topics/events"))
	assert.Empty(t, TopicResourceName("", "events"))
	assert.Empty(t, TopicResourceName("hh", "  "))
}
