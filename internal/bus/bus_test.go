package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

func TestTopicFansOutInOrder(t *testing.T) {
	var topic Topic[OpenGame]
	var got []string
	topic.Subscribe(func(o OpenGame) { got = append(got, "a:"+string(o.Kind)) })
	unsub := topic.Subscribe(func(o OpenGame) { got = append(got, "b:"+string(o.Kind)) })

	topic.Publish(OpenGame{SessionID: 1, Kind: domain.KindTrivia, Code: "ABCD"})
	unsub()
	unsub()
	topic.Publish(OpenGame{Kind: domain.KindCharades})

	assert.Equal(t, []string{"a:trivia", "b:trivia", "a:charades_ai"}, got)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	var topic Topic[int]
	assert.NotPanics(t, func() { topic.Publish(1) })
}

func TestSubscriberMayUnsubscribeWhileNotified(t *testing.T) {
	var topic Topic[int]
	calls := 0
	var unsub func()
	unsub = topic.Subscribe(func(int) {
		calls++
		unsub()
	})
	topic.Publish(1)
	topic.Publish(2)
	assert.Equal(t, 1, calls)
}
