package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"sync"
)

// Topic suffixes under <prefix><id>/.
const (
	TopicRx   = "rx"
	TopicTx   = "tx"
	TopicMeta = "meta"
	TopicTxn  = "txn"
)

// Topic returns the topic of a console, relative to the prefix.
func Topic(id, suffix string) string {
	return id + "/" + suffix
}

// Stream implements io.ReadWriteCloser over a pair of topics.
type Stream struct {
	Queue    *Queue
	SubTopic string
	PubTopic string
	// OwnsQueue disconnects the Queue on Close.
	OwnsQueue bool

	dataCh  chan []byte
	done    chan struct{}
	pending []byte
	sub     *Subscription
	once    sync.Once
}

// NewStream creates a Stream on the Queue.
func NewStream(q *Queue) *Stream {
	return &Stream{
		Queue:  q,
		dataCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (s *Stream) WithTopics(sub, pub string) *Stream {
	s.SubTopic, s.PubTopic = sub, pub
	return s
}

// ForConsole sets topics for the console side:
// SubTopic = id/rx
// PubTopic = id/tx
func (s *Stream) ForConsole(id string) *Stream {
	return s.WithTopics(Topic(id, TopicRx), Topic(id, TopicTx))
}

// ForClient sets topics for the host side talking to a console:
// SubTopic = id/tx
// PubTopic = id/rx
func (s *Stream) ForClient(id string) *Stream {
	return s.WithTopics(Topic(id, TopicTx), Topic(id, TopicRx))
}

// Start subscribes SubTopic.
func (s *Stream) Start() *Stream {
	s.sub = s.Queue.Sub(s.SubTopic, s.handleMsg)
	return s
}

// Read implements io.Reader. Message boundaries are not preserved.
func (s *Stream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		select {
		case data := <-s.dataCh:
			s.pending = data
		case <-s.done:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write implements io.Writer, one message per call.
func (s *Stream) Write(p []byte) (int, error) {
	token := s.Queue.Pub(s.PubTopic, append([]byte(nil), p...))
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Stream) Close() (err error) {
	s.once.Do(func() {
		close(s.done)
		if s.sub != nil {
			err = s.sub.Close()
		}
		if s.OwnsQueue {
			s.Queue.Close()
		}
	})
	return
}

func (s *Stream) handleMsg(_ string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	select {
	case s.dataCh <- append([]byte(nil), payload...):
	case <-s.done:
	}
}

// Console is the console end of a broker link. It advertises a retained
// meta document while connected.
type Console struct {
	*Stream
	ID string

	metaJSON []byte
}

// DialConsole connects to the broker and serves console id.
func DialConsole(ctx context.Context, u *url.URL, id string, meta map[string]interface{}) (*Console, error) {
	doc := map[string]interface{}{"id": id}
	for k, v := range meta {
		doc[k] = v
	}
	metaJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptions(u)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+Topic(id, TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("rig:" + id)
	}
	c := &Console{ID: id, metaJSON: metaJSON}
	q := NewQueue(opts, topicPrefix)
	q.OnConnect = func(q *Queue) { q.PubWith(Topic(id, TopicMeta), c.metaJSON, 1, true) }
	c.Stream = NewStream(q).ForConsole(id).Start()
	if err := Connect(ctx, q); err != nil {
		return nil, err
	}
	return c, nil
}

// Close withdraws the meta document and disconnects.
func (c *Console) Close() error {
	err := c.Stream.Close()
	c.Queue.PubWith(Topic(c.ID, TopicMeta), nil, 1, true).Wait()
	c.Queue.Close()
	return err
}

// DialClient connects to the broker as a host talking to console id.
func DialClient(ctx context.Context, u *url.URL, id string) (*Stream, error) {
	opts, topicPrefix, err := ClientOptions(u)
	if err != nil {
		return nil, err
	}
	q := NewQueue(opts, topicPrefix)
	s := NewStream(q).ForClient(id).Start()
	s.OwnsQueue = true
	if err := Connect(ctx, q); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect connects the Queue and waits until connected or ctx is done.
func Connect(ctx context.Context, q *Queue) error {
	token := q.Connect()
	doneCh := make(chan struct{})
	go func() {
		token.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
		if err := token.Error(); err != nil {
			q.Close()
			return err
		}
		return nil
	case <-ctx.Done():
		q.Close()
		return ctx.Err()
	}
}
