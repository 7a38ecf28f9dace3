package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu         sync.Mutex
	messages   []kafkago.Message
	fetchErrs  []error
	commitErrs []error
	fetches    int
	committed  []int64
	closed     bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafkago.Message{}, err
	}
	if len(r.messages) == 0 {
		return kafkago.Message{}, io.EOF
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commitErrs) > 0 {
		err := r.commitErrs[0]
		r.commitErrs = r.commitErrs[1:]
		return err
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestConsumer_CommitsAfterSuccessAndRetriesFailures(t *testing.T) {
	reader := &fakeReader{messages: []kafkago.Message{{Offset: 1}, {Offset: 2}}}
	attempts := map[int64]int{}
	handler := func(_ context.Context, m kafkago.Message) error {
		attempts[m.Offset]++
		if m.Offset == 2 && attempts[m.Offset] < 3 {
			return errors.New("database unavailable")
		}
		return nil
	}

	err := NewConsumer(reader, WithBackoff(time.Millisecond, 2*time.Millisecond)).Start(context.Background(), handler)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, reader.committed)
	require.Equal(t, 3, attempts[2])
	require.True(t, reader.closed)
}

func TestConsumer_StopsWithoutCommitWhenCancelled(t *testing.T) {
	reader := &fakeReader{messages: []kafkago.Message{{Offset: 1}}}
	ctx, cancel := context.WithCancel(context.Background())
	handler := func(context.Context, kafkago.Message) error {
		cancel()
		return errors.New("still failing")
	}

	require.NoError(t, NewConsumer(reader, WithBackoff(time.Hour, time.Hour)).Start(ctx, handler))
	require.Empty(t, reader.committed)
}

func TestConsumer_SurvivesBrokerErrors(t *testing.T) {
	reader := &fakeReader{
		messages:   []kafkago.Message{{Offset: 1}, {Offset: 2}},
		fetchErrs:  []error{errors.New("broker connection reset"), errors.New("broker connection reset")},
		commitErrs: []error{errors.New("coordinator not available")},
	}
	handled := 0
	handler := func(context.Context, kafkago.Message) error {
		handled++
		return nil
	}

	err := NewConsumer(reader, WithBackoff(time.Millisecond, 2*time.Millisecond)).Start(context.Background(), handler)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, reader.committed)
	require.Equal(t, 2, handled, "a failed commit must not rerun the handler")
	require.Equal(t, 5, reader.fetches)
	require.True(t, reader.closed)
}

func TestConsumer_FetchRetriesStopOnCancel(t *testing.T) {
	errs := make([]error, 100)
	for i := range errs {
		errs[i] = errors.New("broker connection reset")
	}
	reader := &fakeReader{fetchErrs: errs}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewConsumer(reader, WithBackoff(5*time.Millisecond, 5*time.Millisecond)).Start(ctx, func(context.Context, kafkago.Message) error {
		t.Fatal("handler must not run without a message")
		return nil
	})
	require.NoError(t, err)
	require.True(t, reader.closed)
	require.Greater(t, reader.fetches, 1)
}
